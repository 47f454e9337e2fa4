package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/arbor-sdk/arbor/internal/subagent"
)

// gatewayFlag is shared by every subcommand that talks to a running
// gateway rather than embedding its own registry.
var gatewayFlag = &cli.StringFlag{
	Name:  "gateway",
	Usage: "Base URL of a running arbor gateway",
	Value: "http://127.0.0.1:18420",
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func postJSON(url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()
	return decodeJSON(resp, out)
}

func getJSON(url string, out any) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()
	return decodeJSON(resp, out)
}

func decodeJSON(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(data))
	}
	return json.Unmarshal(data, out)
}

// identityTaskFn is the default TaskFunc used when the CLI/gateway has no
// host-supplied logic wired in: the core treats task bodies as opaque
// user-supplied functions (spec's explicit non-goal is any LLM-specific
// logic), so standalone use just echoes the prompt back as the result.
func identityTaskFn(prompt, instructions string, metadata map[string]any) subagent.TaskFunc {
	return func(ctx context.Context, emit subagent.Emitter) (any, error) {
		return prompt, nil
	}
}
