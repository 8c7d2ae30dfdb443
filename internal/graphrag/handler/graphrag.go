// Package handler exposes the GraphRAG service over HTTP.
package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/biz"
	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/internal/pkg/docutil"
	"github.com/kart-io/graphrag/internal/pkg/httputils"
	"github.com/kart-io/graphrag/pkg/errors"
)

// queryTimeout bounds one query across classification, retrieval and
// generation.
const queryTimeout = 60 * time.Second

// GraphRAGHandler handles GraphRAG HTTP requests.
type GraphRAGHandler struct {
	svc biz.Service
}

// NewGraphRAGHandler creates a new GraphRAGHandler.
func NewGraphRAGHandler(svc biz.Service) *GraphRAGHandler {
	return &GraphRAGHandler{svc: svc}
}

// QueryRequest is the request body for the query endpoint.
type QueryRequest struct {
	Question  string `json:"question" binding:"required"`
	UseHybrid *bool  `json:"use_hybrid"`
	TopK      int    `json:"top_k" binding:"omitempty,min=1,max=100"`
}

// Query answers a question with hybrid retrieval.
func (h *GraphRAGHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	useHybrid := true
	if req.UseHybrid != nil {
		useHybrid = *req.UseHybrid
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	resp, err := h.svc.Query(ctx, req.Question, useHybrid, req.TopK)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errors.ErrQueryTimeout.WithCause(err)
		}
		httputils.WriteResponse(c, err, nil)
		return
	}

	httputils.WriteResponse(c, nil, resp)
}

// IngestRequest is the request body for document ingestion. FileContent is
// base64-encoded; plain text that fails to decode is ingested as-is.
type IngestRequest struct {
	FileName    string         `json:"file_name" binding:"required"`
	FileType    string         `json:"file_type" binding:"required"`
	FileContent string         `json:"file_content" binding:"required"`
	DocumentID  string         `json:"document_id"`
	Metadata    map[string]any `json:"metadata"`
}

// IngestResponse is returned after a successful ingestion.
type IngestResponse struct {
	DocumentID         string `json:"document_id"`
	ChunksCreated      int    `json:"chunks_created"`
	EntitiesExtracted  int    `json:"entities_extracted"`
	RelationsExtracted int    `json:"relations_extracted"`
	Message            string `json:"message"`
}

// Ingest ingests a document: decode, extract text, chunk, embed, store.
func (h *GraphRAGHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrInvalidRequest.WithMessage(err.Error()), nil)
		return
	}

	fileName := normalizeFileName(req.FileName, req.FileType)
	if !docutil.IsSupported(fileName) {
		httputils.WriteResponse(c, errors.ErrUnsupportedFileType.WithMessagef("unsupported file type: %s", req.FileType), nil)
		return
	}

	text, err := decodePayload(fileName, req.FileContent)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["file_name"] = req.FileName
	metadata["file_type"] = req.FileType

	result, err := h.svc.IngestDocument(c.Request.Context(), req.DocumentID, text, metadata)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	httputils.WriteResponse(c, nil, &IngestResponse{
		DocumentID:         result.DocumentID,
		ChunksCreated:      result.ChunksCreated,
		EntitiesExtracted:  result.EntitiesExtracted,
		RelationsExtracted: result.RelationsExtracted,
		Message:            "Document " + req.FileName + " ingested successfully",
	})
}

// DeleteDocument removes all chunks of a document.
func (h *GraphRAGHandler) DeleteDocument(c *gin.Context) {
	documentID := c.Param("id")
	if documentID == "" {
		httputils.WriteResponse(c, errors.ErrInvalidRequest.WithMessage("document id is required"), nil)
		return
	}

	deleted, err := h.svc.DeleteDocument(c.Request.Context(), documentID)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	httputils.WriteResponse(c, nil, gin.H{
		"document_id":    documentID,
		"chunks_deleted": deleted,
	})
}

// EntityPath returns the shortest path between two graph entities.
func (h *GraphRAGHandler) EntityPath(c *gin.Context) {
	source := c.Query("source")
	target := c.Query("target")
	if source == "" || target == "" {
		httputils.WriteResponse(c, errors.ErrInvalidRequest.WithMessage("source and target are required"), nil)
		return
	}

	maxDepth := 0
	if raw := c.Query("max_depth"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			httputils.WriteResponse(c, errors.ErrInvalidRequest.WithMessage("max_depth must be a positive integer"), nil)
			return
		}
		maxDepth = v
	}

	path, err := h.svc.EntityPath(c.Request.Context(), source, target, maxDepth)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	httputils.WriteResponse(c, nil, path)
}

// Health reports backend readiness.
func (h *GraphRAGHandler) Health(c *gin.Context) {
	status, err := h.svc.Health(c.Request.Context())
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, status)
}

// Stats returns backend and pipeline statistics.
func (h *GraphRAGHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	httputils.WriteResponse(c, nil, stats)
}

// Metrics serves pipeline counters in Prometheus text format.
func (h *GraphRAGHandler) Metrics(c *gin.Context) {
	c.String(http.StatusOK, metrics.Get().Export("graphrag", "api"))
}

// normalizeFileName ensures the name carries the declared extension so text
// extraction dispatches correctly.
func normalizeFileName(fileName, fileType string) string {
	if docutil.IsSupported(fileName) {
		return fileName
	}
	return fileName + "." + fileType
}

// decodePayload base64-decodes the upload. Plain text content that is not
// valid base64 is accepted as-is; binary formats must decode.
func decodePayload(fileName, content string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		if docutil.IsBinary(fileName) {
			return "", errors.ErrInvalidRequest.WithMessage("file_content must be base64 encoded")
		}
		logger.Debugw("file content is not base64, ingesting as plain text", "file_name", fileName)
		return content, nil
	}

	text, err := docutil.ExtractText(fileName, data)
	if err != nil {
		return "", errors.ErrUnsupportedFileType.WithCause(err)
	}
	return text, nil
}
