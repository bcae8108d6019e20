package queue

const (
	TypeDocumentIndex = "document:index"
	TypeCorpusReindex = "corpus:reindex"
)

type DocumentIndexPayload struct {
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
}
