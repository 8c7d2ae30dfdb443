package errors

import "google.golang.org/grpc/codes"

// Common errors (service 00).
var (
	// ErrInternal is the catch-all internal error.
	ErrInternal = Register(New(MakeCode(ServiceCommon, CategoryInternal, 1), 500, codes.Internal, "Internal server error", "内部服务器错误"))
)

// GraphRAG service errors (service 20).
var (
	// Request/validation errors (category 01).
	ErrInvalidRequest       = Register(New(MakeCode(ServiceGraphRAG, CategoryRequest, 1), 400, codes.InvalidArgument, "Invalid request parameters", "请求参数无效"))
	ErrVectorCountMismatch  = Register(New(MakeCode(ServiceGraphRAG, CategoryRequest, 2), 400, codes.InvalidArgument, "Chunk and vector counts do not match", "文本块与向量数量不匹配"))
	ErrEmptyDocument        = Register(New(MakeCode(ServiceGraphRAG, CategoryRequest, 3), 400, codes.InvalidArgument, "Document content is empty", "文档内容为空"))
	ErrUnsupportedFileType  = Register(New(MakeCode(ServiceGraphRAG, CategoryRequest, 4), 400, codes.InvalidArgument, "Unsupported file type", "不支持的文件类型"))
	ErrDimensionMismatch    = Register(New(MakeCode(ServiceGraphRAG, CategoryRequest, 5), 400, codes.InvalidArgument, "Embedding dimension mismatch", "向量维度不匹配"))
	ErrInvalidGraphType     = Register(New(MakeCode(ServiceGraphRAG, CategoryRequest, 6), 400, codes.InvalidArgument, "Invalid graph label or relation type", "图标签或关系类型无效"))

	// Resource errors (category 04).
	ErrDocumentNotFound = Register(New(MakeCode(ServiceGraphRAG, CategoryResource, 1), 404, codes.NotFound, "Document not found", "文档不存在"))
	ErrPathNotFound     = Register(New(MakeCode(ServiceGraphRAG, CategoryResource, 2), 404, codes.NotFound, "No path found between entities", "实体间不存在路径"))

	// Internal errors (category 07).
	ErrQueryFailed  = Register(New(MakeCode(ServiceGraphRAG, CategoryInternal, 1), 500, codes.Internal, "Query failed", "查询失败"))
	ErrIngestFailed = Register(New(MakeCode(ServiceGraphRAG, CategoryInternal, 2), 500, codes.Internal, "Document ingestion failed", "文档摄取失败"))
	ErrIndexPersist = Register(New(MakeCode(ServiceGraphRAG, CategoryInternal, 3), 500, codes.Internal, "Vector index persistence failed", "向量索引持久化失败"))

	// Upstream errors (category 10).
	ErrProviderUnavailable = Register(New(MakeCode(ServiceGraphRAG, CategoryNetwork, 1), 502, codes.Unavailable, "Model provider unavailable", "模型供应商不可用"))
	ErrVectorStoreFailed   = Register(New(MakeCode(ServiceGraphRAG, CategoryNetwork, 2), 503, codes.Unavailable, "Vector store operation failed", "向量存储操作失败"))

	// Timeout errors (category 11).
	ErrQueryTimeout = Register(New(MakeCode(ServiceGraphRAG, CategoryTimeout, 1), 504, codes.DeadlineExceeded, "Query timeout", "查询超时"))
)
