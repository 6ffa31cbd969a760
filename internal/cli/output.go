package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"fraction-presale-go/internal/common"
	"fraction-presale-go/internal/presale"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitSuccess  = 0
	ExitFailure  = 1 // infrastructure or usage error
	ExitRejected = 2 // the engine refused the operation
)

// Response is the standard JSON response format for CLI output.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   interface{}    `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError carries the engine error code for rejections.
type ResponseError struct {
	Code    uint32 `json:"code,omitempty"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

type output struct {
	format string
	w      io.Writer
}

func (o *RootOptions) out(cmd *cobra.Command) output {
	return output{format: o.Format, w: cmd.OutOrStdout()}
}

// result writes data as JSON, or the title and fields as text.
func (p output) result(title string, data interface{}, fields []common.Field) error {
	if p.format == "json" {
		return json.NewEncoder(p.w).Encode(Response{Status: "ok", Data: data})
	}
	common.PrintHeader(p.w, title, common.DefaultWidth)
	common.PrintFields(p.w, fields)
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	return execute(ctx, cmd, os.Stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, errOut io.Writer) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	resp := ResponseError{Message: err.Error()}
	code := ExitFailure

	var presaleErr *presale.Error
	if errors.As(err, &presaleErr) {
		resp.Code = presaleErr.Code
		resp.Name = presaleErr.Name
		resp.Message = presaleErr.Message
		code = ExitRejected
	}

	if format == "json" {
		_ = json.NewEncoder(cmd.OutOrStdout()).Encode(Response{Status: "error", Error: &resp})
		return code
	}
	if resp.Name != "" {
		fmt.Fprintf(errOut, "Error [%d %s]: %s\n", resp.Code, resp.Name, resp.Message)
	} else {
		fmt.Fprintf(errOut, "Error: %s\n", resp.Message)
	}
	return code
}
