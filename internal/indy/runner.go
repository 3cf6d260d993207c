package indy

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/schema"
)

// ActionRequest is a direct edit request from the editor. TargetIndex
// selects an existing block; without it a new block of BlockType is added.
type ActionRequest struct {
	UserInput   string
	BlockType   string
	TargetIndex *int
	Tokens      schema.DesignTokens
}

// Runner applies single edits without the function-calling loop: property
// tweaks go to the property agent, everything else to the generate endpoint.
type Runner struct {
	generateURL string
	httpClient  *http.Client
	property    PropertyAgent
	logger      *slog.Logger
}

// NewRunner creates a runner. property may be nil to disable the fast path.
func NewRunner(generateURL string, property PropertyAgent, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Runner{
		generateURL: generateURL,
		httpClient:  &http.Client{Timeout: timeout},
		property:    property,
		logger:      slog.Default().With("component", "runner"),
	}
}

// RunIndyAction computes and applies one action to store.
func (r *Runner) RunIndyAction(ctx context.Context, store blockstore.Store, req ActionRequest) (blockstore.Outcome, error) {
	var target *blockstore.Block
	if req.TargetIndex != nil {
		b, err := store.Get(*req.TargetIndex)
		if err != nil {
			return blockstore.Outcome{}, err
		}
		target = &b
	}

	if target != nil && r.property != nil && IsPropertyChange(req.UserInput) {
		update, err := r.property.Propose(ctx, PropertyRequest{
			UserInput: req.UserInput,
			Index:     *req.TargetIndex,
			Block:     *target,
			Tokens:    req.Tokens,
		})
		switch {
		case err == nil:
			if err := ctx.Err(); err != nil {
				return blockstore.Outcome{}, err
			}
			r.logger.Debug("property fast path", "path", update.Path)
			return store.Apply(update)
		case errors.IsValidation(err):
			r.logger.Debug("property fast path declined, generating instead", "reason", err)
		default:
			return blockstore.Outcome{}, err
		}
	}

	genReq := GenerateRequest{UserInput: req.UserInput, BlockType: req.BlockType, Tokens: req.Tokens}
	if target != nil {
		genReq.BlockType = target.BlockType
		genReq.CurrentData = target.BlockData
	}

	data, err := r.generate(ctx, genReq)
	if err != nil {
		return blockstore.Outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return blockstore.Outcome{}, err
	}

	if target != nil {
		return store.Apply(blockstore.UpdateBlock{
			Ref:     blockstore.Ref{Index: *req.TargetIndex, ID: target.ID},
			Updates: data,
		})
	}
	return store.Apply(blockstore.AddBlock{BlockType: genReq.BlockType, Data: data})
}

func (r *Runner) generate(ctx context.Context, req GenerateRequest) (map[string]any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.InternalErrorf("encode generate request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.generateURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.InternalErrorf("build generate request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.ExternalError(err, "generate request failed")
	}
	defer resp.Body.Close()

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.ParseError(err, "decode generate response")
	}
	if !out.Success {
		reason := out.Error
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return nil, errors.New(errors.ErrorTypeExternal, errors.SeverityMedium, reason).
			WithContext("status", resp.StatusCode)
	}
	if out.BlockData == nil {
		out.BlockData = map[string]any{}
	}
	return out.BlockData, nil
}
