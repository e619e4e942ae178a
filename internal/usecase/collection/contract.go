package collection

// Declarer is the ingestion collaborator's declaration of its default collection.
type Declarer interface {
	DefaultCollection() string
}
