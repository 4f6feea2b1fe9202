package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/openkiss/kiss/kernel/cluster"
	"github.com/openkiss/kiss/kernel/loader"
	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/routing"
)

// KissMCPServer exposes a running cluster over the Model Context Protocol:
// manifest apply, resource listing/deletion, and message sends.
type KissMCPServer struct {
	server  *server.MCPServer
	cluster *cluster.Cluster
}

func NewKissMCPServer(c *cluster.Cluster) *KissMCPServer {
	srv := server.NewMCPServer(
		"Kiss Cluster",
		"v1.0.0",
		server.WithResourceCapabilities(true, true),
		server.WithToolCapabilities(true),
	)

	ks := &KissMCPServer{
		server:  srv,
		cluster: c,
	}

	ks.registerTools()
	ks.registerResources()

	return ks
}

func (ks *KissMCPServer) ServeStdio() error {
	return server.ServeStdio(ks.server)
}

func (ks *KissMCPServer) registerTools() {
	applyTool := mcp.NewTool("apply_manifest",
		mcp.WithDescription("Apply a multi-document YAML manifest of Container/ReplicaSet/Service resources"),
		mcp.WithString("manifest",
			mcp.Description("YAML manifest content"),
			mcp.Required(),
		),
	)
	ks.server.AddTool(applyTool, ks.applyManifestHandler)

	deleteTool := mcp.NewTool("delete_resource",
		mcp.WithDescription("Delete a resource by kind and name"),
		mcp.WithString("kind",
			mcp.Description("Resource kind (Container, ReplicaSet, Service)"),
			mcp.Required(),
		),
		mcp.WithString("name",
			mcp.Description("Resource name"),
			mcp.Required(),
		),
	)
	ks.server.AddTool(deleteTool, ks.deleteResourceHandler)

	sendTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send a message to a container or service, optionally waiting for a reply"),
		mcp.WithString("target",
			mcp.Description("Container or service name"),
			mcp.Required(),
		),
		mcp.WithString("target_kind",
			mcp.Description("Either 'container' or 'service'"),
			mcp.Required(),
		),
		mcp.WithString("value",
			mcp.Description("Message payload; JSON is decoded, anything else is sent as a string"),
			mcp.Required(),
		),
		mcp.WithBoolean("expect_reply",
			mcp.Description("Wait for the workload's reply"),
		),
	)
	ks.server.AddTool(sendTool, ks.sendMessageHandler)
}

func (ks *KissMCPServer) registerResources() {
	resource := mcp.NewResource("kiss://resources", "Cluster Resources",
		mcp.WithResourceDescription("All declared resources, grouped by kind"),
		mcp.WithMIMEType("application/json"),
	)
	ks.server.AddResource(resource, ks.resourcesHandler)
}

func (ks *KissMCPServer) applyManifestHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	manifest, err := request.RequireString("manifest")
	if err != nil {
		return mcp.NewToolResultError("manifest argument is required"), nil
	}
	resources, err := loader.Load([]byte(manifest))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := ks.cluster.Apply(resources); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("applied %d resource(s)", len(resources))), nil
}

func (ks *KissMCPServer) deleteResourceHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := request.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError("kind argument is required"), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name argument is required"), nil
	}
	if !ks.cluster.Delete(model.Kind(kind), name) {
		return mcp.NewToolResultError(fmt.Sprintf("%s '%s' not found", kind, name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s '%s'", kind, name)), nil
}

func (ks *KissMCPServer) sendMessageHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := request.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError("target argument is required"), nil
	}
	targetKind, err := request.RequireString("target_kind")
	if err != nil {
		return mcp.NewToolResultError("target_kind argument is required"), nil
	}
	raw, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError("value argument is required"), nil
	}
	expectReply := request.GetBool("expect_reply", false)

	var value any = raw
	var decoded any
	if json.Unmarshal([]byte(raw), &decoded) == nil {
		value = decoded
	}

	api := ks.cluster.Router()
	var future *routing.Future
	switch targetKind {
	case "container":
		future, err = api.SendToContainer(target, value, expectReply)
	case "service":
		future, err = api.SendToService(target, value, expectReply)
	default:
		return mcp.NewToolResultError("target_kind must be 'container' or 'service'"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !expectReply {
		return mcp.NewToolResultText("message delivered"), nil
	}
	result, err := future.Wait(10 * time.Second)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%v", result)), nil
}

func (ks *KissMCPServer) resourcesHandler(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	byKind := map[string][]*model.Resource{}
	for _, kind := range model.Kinds() {
		byKind[string(kind)] = ks.cluster.List(kind)
	}
	data, err := json.MarshalIndent(byKind, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resources: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "kiss://resources",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
