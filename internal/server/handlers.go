package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/cms"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/indy"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func healthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /entries/:site
func (s *Server) listEntries(c *gin.Context) {
	entries, err := s.deps.Store.ListEntries(c.Request.Context(), c.Param("site"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"entries": entries})
}

// GET /entries/:site/:entry
func (s *Server) getEntry(c *gin.Context) {
	blocks, err := s.deps.Store.LoadBlocks(c.Request.Context(), c.Param("site"), c.Param("entry"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, cms.EntryPayload{Blocks: blocks})
}

// PUT /entries/:site/:entry
func (s *Server) putEntry(c *gin.Context) {
	var payload cms.EntryPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	blocks := make([]blockstore.Block, len(payload.Blocks))
	for i, b := range payload.Blocks {
		if b.BlockType == "" {
			respondError(c, http.StatusBadRequest, "invalid_request",
				errors.ValidationErrorf("block %d has no blockType", i))
			return
		}
		if b.ID == "" {
			b.ID = blockstore.NewBlock(b.BlockType, nil).ID
		}
		if b.BlockData == nil {
			b.BlockData = map[string]any{}
		}
		b.Position = i
		blocks[i] = b
	}

	site, entry := c.Param("site"), c.Param("entry")
	err := s.deps.Sessions.With(c.Request.Context(), site, entry, func(st blockstore.Store) error {
		if err := s.deps.Store.SaveBlocks(c.Request.Context(), site, entry, blocks); err != nil {
			return err
		}
		st.Reset(blocks)
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, cms.EntryPayload{Blocks: blocks})
}

// DELETE /entries/:site/:entry
func (s *Server) deleteEntry(c *gin.Context) {
	site, entry := c.Param("site"), c.Param("entry")
	err := s.deps.Sessions.Evict(c.Request.Context(), site, entry, func() error {
		return s.deps.Store.DeleteEntry(c.Request.Context(), site, entry)
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type blockTypeInfo struct {
	Kind        registry.BlockKind `json:"kind"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Component   string             `json:"component"`
}

// GET /api/indy/blocks
func (s *Server) listBlocks(c *gin.Context) {
	descs := s.deps.Registry.Blocks()
	out := make([]blockTypeInfo, len(descs))
	for i, d := range descs {
		out[i] = blockTypeInfo{Kind: d.Kind, Name: d.Name, Description: d.Description, Component: d.Component}
	}
	respondOK(c, gin.H{"blocks": out})
}

// POST /api/indy/generate
func (s *Server) generate(c *gin.Context) {
	var req indy.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, indy.GenerateResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		c.JSON(http.StatusBadRequest, indy.GenerateResponse{Error: "userInput is required"})
		return
	}
	if req.Tokens.IsEmpty() {
		req.Tokens = s.deps.Tokens
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	resp := s.deps.Generator.Generate(ctx, req)
	if !resp.Success {
		s.deps.Logger.WithFields(logrus.Fields{
			"block_type": req.BlockType,
			"reason":     resp.Error,
		}).Warn("generation failed")
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	respondOK(c, resp)
}

type chatRequest struct {
	Site          string `json:"site" binding:"required"`
	Entry         string `json:"entry" binding:"required"`
	UserInput     string `json:"userInput" binding:"required"`
	SelectedIndex *int   `json:"selectedIndex"`
}

type chatResponse struct {
	Message  string             `json:"message"`
	Function string             `json:"function,omitempty"`
	Saved    bool               `json:"saved,omitempty"`
	Blocks   []blockstore.Block `json:"blocks"`
}

// POST /api/indy/chat
func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if !s.limiter.allow(req.Site + "/" + req.Entry) {
		tooManyRequests(c)
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var out chatResponse
	err := s.deps.Sessions.With(ctx, req.Site, req.Entry, func(st blockstore.Store) error {
		resp := s.deps.Dispatcher.Handle(ctx, indy.Request{
			Store:         st,
			UserInput:     req.UserInput,
			SelectedIndex: req.SelectedIndex,
			PagePath:      "/edit/" + req.Site + "/" + req.Entry,
			Tokens:        s.deps.Tokens,
		})
		if resp.Err != nil {
			s.deps.Logger.WithError(resp.Err).WithFields(logrus.Fields{
				"site":     req.Site,
				"entry":    req.Entry,
				"function": resp.Function,
			}).Warn("assistant request failed")
		}
		out = chatResponse{
			Message:  resp.Message,
			Function: resp.Function,
			Saved:    resp.Saved,
			Blocks:   st.List(),
		}
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, out)
}

type actionRequest struct {
	Site        string `json:"site" binding:"required"`
	Entry       string `json:"entry" binding:"required"`
	UserInput   string `json:"userInput" binding:"required"`
	BlockType   string `json:"blockType"`
	TargetIndex *int   `json:"targetIndex"`
}

type actionResponse struct {
	Kind   blockstore.ActionKind `json:"kind"`
	Index  int                   `json:"index"`
	Block  blockstore.Block      `json:"block"`
	Blocks []blockstore.Block    `json:"blocks"`
}

// POST /api/indy/action
func (s *Server) action(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.TargetIndex == nil && req.BlockType == "" {
		respondError(c, http.StatusBadRequest, "invalid_request",
			errors.ValidationError("either targetIndex or blockType is required"))
		return
	}
	if !s.limiter.allow(req.Site + "/" + req.Entry) {
		tooManyRequests(c)
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var out actionResponse
	err := s.deps.Sessions.With(ctx, req.Site, req.Entry, func(st blockstore.Store) error {
		outcome, err := s.deps.Runner.RunIndyAction(ctx, st, indy.ActionRequest{
			UserInput:   req.UserInput,
			BlockType:   req.BlockType,
			TargetIndex: req.TargetIndex,
			Tokens:      s.deps.Tokens,
		})
		if err != nil {
			return err
		}
		out = actionResponse{Kind: outcome.Kind, Index: outcome.Index, Block: outcome.Block, Blocks: st.List()}
		return nil
	})
	if err != nil {
		s.deps.Logger.WithError(err).WithField("site", req.Site).Warn("indy action failed")
		status, code := statusFor(err)
		msg := indy.UserMessage(err)
		if errors.IsValidation(err) {
			msg = err.Error()
		}
		c.JSON(status, ErrorBody{Error: msg, Code: code})
		return
	}
	respondOK(c, out)
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), s.timeout)
}
