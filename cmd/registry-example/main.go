package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mcp-use/mcp-registry-go/pkg/mcpconn"
	"github.com/mcp-use/mcp-registry-go/pkg/mcpreg"
)

func main() {
	registry := mcpreg.New(&mcpconn.Factory{}, &mcpreg.Options{
		ConnectTimeout: 10 * time.Second,
	})

	// The same endpoint registered twice under independent names, each with
	// its own credentials.
	if err := registry.AddServer("admin", &mcpreg.ServerConfig{
		URL:       "http://localhost:3001/mcp",
		AuthToken: "admin_token",
	}); err != nil {
		fmt.Printf("add admin: %v\n", err)
		return
	}
	if err := registry.AddServer("readonly", &mcpreg.ServerConfig{
		URL:       "http://localhost:3001/mcp",
		AuthToken: "readonly_token",
	}); err != nil {
		fmt.Printf("add readonly: %v\n", err)
		return
	}

	for _, name := range registry.GetServerNames() {
		cfg, _ := registry.GetServerConfig(name)
		fmt.Printf("Configured server: %s -> %s\n", name, cfg.URL)
	}

	ctx := context.Background()
	session, err := registry.CreateSession(ctx, "admin")
	if err != nil {
		fmt.Printf("connect error: %v\n", err)
	} else {
		init := session.InitializeResult()
		fmt.Printf("Connected %s (protocol %s)\n", session.ServerName(), init.ProtocolVersion)
	}

	if err := registry.CloseAllSessions(); err != nil {
		fmt.Printf("close error: %v\n", err)
	}
}
