package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var registryURL, token string

	root := &cobra.Command{
		Use:   "yamfctl",
		Short: "Command-line client for a YAMF registry",
	}
	root.PersistentFlags().StringVar(&registryURL, "registry", envOr("YAMF_REGISTRY_URL", "http://localhost:4000"), "registry base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("YAMF_REGISTRY_TOKEN"), "registry token")

	root.AddCommand(newCallCmd(&registryURL, &token))
	root.AddCommand(newPublishCmd(&registryURL, &token))
	root.AddCommand(newLookupCmd(&registryURL, &token))
	return root
}

func newCallCmd(registryURL, token *string) *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:   "call <service> [payload-json]",
		Short: "Issue a service-call against a registered service",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				payload = args[1]
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, *registryURL, bytes.NewBufferString(payload))
			if err != nil {
				return err
			}
			req.Header.Set(wire.HeaderCommand, string(wire.CmdServiceCall))
			req.Header.Set(wire.HeaderServiceName, args[0])
			req.Header.Set("Content-Type", "application/json")
			if *token != "" {
				req.Header.Set(wire.HeaderRegistryToken, *token)
			}
			return doAndPrint(req)
		},
	}
	return cmd
}

func newPublishCmd(registryURL, token *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <channel> <message-json>",
		Short: "Publish a message to a pub/sub channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, *registryURL, bytes.NewBufferString(args[1]))
			if err != nil {
				return err
			}
			req.Header.Set(wire.HeaderCommand, string(wire.CmdPubsubPublish))
			req.Header.Set(wire.HeaderPubsubChannel, args[0])
			req.Header.Set("Content-Type", "application/json")
			if *token != "" {
				req.Header.Set(wire.HeaderRegistryToken, *token)
			}
			return doAndPrint(req)
		},
	}
	return cmd
}

func newLookupCmd(registryURL, token *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup [service]",
		Short: "List registered services, or resolve one service's locations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := wire.LookupAll
			if len(args) == 1 {
				name = args[0]
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, *registryURL, nil)
			if err != nil {
				return err
			}
			req.Header.Set(wire.HeaderCommand, string(wire.CmdServiceLookup))
			req.Header.Set(wire.HeaderServiceName, name)
			if *token != "" {
				req.Header.Set(wire.HeaderRegistryToken, *token)
			}
			return doAndPrint(req)
		},
	}
	return cmd
}

func doAndPrint(req *http.Request) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("yamfctl: status %d: %s", resp.StatusCode, body)
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(body))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
