package document

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"alphabase/internal/platform/metrics"
	"alphabase/internal/query"
	"alphabase/internal/realtime"
	"alphabase/internal/rules"
	dErrors "alphabase/pkg/domain-errors"
)

// Broadcaster is the hub as seen by the service.
type Broadcaster interface {
	Publish(event realtime.Event)
}

// RuleValidator is the rule engine as seen by the service.
type RuleValidator interface {
	ValidateRead(collection, principal string, resource *rules.Resource) bool
	ValidateWrite(collection, principal string, resource *rules.Resource) bool
}

// Service runs the mutation and read pipelines: rule checks around store
// access, then change broadcast. Every write path, HTTP or bridge, goes
// through here so the store's per-key serialization covers both.
type Service struct {
	store   Store
	rules   RuleValidator
	hub     Broadcaster
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService constructs the document service. metrics may be nil in tests.
func NewService(store Store, ruleEngine RuleValidator, hub Broadcaster, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		rules:   ruleEngine,
		hub:     hub,
		logger:  logger,
		metrics: m,
	}
}

func resourceOf(doc Document) *rules.Resource {
	return &rules.Resource{ID: doc.ID, Owner: doc.Owner}
}

// Set upserts a document on behalf of a principal. An existing record is
// authorized against its loaded resource, so ownership rules see the actual
// owner; only a first write to the key is decided by the resource-free check.
func (s *Service) Set(ctx context.Context, principal, collection, key string, value json.RawMessage) (Document, error) {
	if err := ValidateName("collection", collection); err != nil {
		return Document{}, err
	}
	if err := ValidateName("key", key); err != nil {
		return Document{}, err
	}

	existing, err := s.store.Get(ctx, DocumentID(collection, key))
	switch {
	case err == nil:
		if !s.rules.ValidateWrite(collection, principal, resourceOf(existing)) {
			return Document{}, dErrors.New(dErrors.CodeForbidden, "not authorized to update this document")
		}
	case errors.Is(err, ErrNotFound):
		if !s.rules.ValidateWrite(collection, principal, nil) {
			return Document{}, dErrors.Newf(dErrors.CodeForbidden, "write access denied to collection: %s", collection)
		}
	default:
		return Document{}, err
	}

	doc, err := s.store.Set(ctx, collection, key, value, principal)
	if err != nil {
		return Document{}, err
	}

	if s.metrics != nil {
		s.metrics.DocumentsWritten.WithLabelValues(collection).Inc()
	}
	s.hub.Publish(realtime.Event{
		Action:     realtime.ActionUpdate,
		Collection: collection,
		Key:        key,
	})
	s.logger.InfoContext(ctx, "document stored",
		"collection", collection,
		"key", key,
		"owner", principal,
	)
	return doc, nil
}

// Get loads one document, applying the read rule before and after the load.
func (s *Service) Get(ctx context.Context, principal, collection, key string) (Document, error) {
	if !s.rules.ValidateRead(collection, principal, nil) {
		return Document{}, dErrors.Newf(dErrors.CodeForbidden, "read access denied to collection: %s", collection)
	}

	doc, err := s.store.Get(ctx, DocumentID(collection, key))
	if err != nil {
		return Document{}, err
	}
	if !s.rules.ValidateRead(collection, principal, resourceOf(doc)) {
		return Document{}, dErrors.New(dErrors.CodeForbidden, "not authorized to read this document")
	}
	return doc, nil
}

// List returns the documents in a collection the principal may read.
func (s *Service) List(ctx context.Context, principal, collection string) ([]Document, error) {
	if !s.rules.ValidateRead(collection, principal, nil) {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "read access denied to collection: %s", collection)
	}

	docs, err := s.store.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	readable := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if s.rules.ValidateRead(collection, principal, resourceOf(doc)) {
			readable = append(readable, doc)
		}
	}
	return readable, nil
}

// Query runs a parsed query over the readable candidate set of a collection.
func (s *Service) Query(ctx context.Context, principal, collection string, q query.Query) ([]query.Item, error) {
	docs, err := s.List(ctx, principal, collection)
	if err != nil {
		return nil, err
	}

	items := make([]query.Item, 0, len(docs))
	for _, doc := range docs {
		items = append(items, query.Item{
			Key:       doc.Key,
			Data:      doc.Value,
			Owner:     doc.Owner,
			CreatedAt: doc.CreatedAt,
		})
	}

	items = query.ApplyWhere(items, q.Where)
	if q.OrderBy != "" {
		items = query.ApplyOrderBy(items, q.OrderBy, q.OrderDirection)
	}
	items = query.ApplyLimit(items, q.Limit)
	return items, nil
}

// Delete removes one document. Authorization runs against the loaded
// resource, so ownership rules apply to the record's actual owner.
func (s *Service) Delete(ctx context.Context, principal, collection, key string) error {
	id := DocumentID(collection, key)
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.rules.ValidateWrite(collection, principal, resourceOf(doc)) {
		return dErrors.New(dErrors.CodeForbidden, "not authorized to delete this document")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.DocumentsDeleted.WithLabelValues(collection).Inc()
	}
	s.hub.Publish(realtime.Event{
		Action:     realtime.ActionDelete,
		Collection: collection,
		Key:        key,
	})
	s.logger.InfoContext(ctx, "document deleted",
		"collection", collection,
		"key", key,
	)
	return nil
}

// Ingest writes on behalf of a trusted system producer, bypassing rule
// evaluation. The broadcast event carries the producer's source tag.
func (s *Service) Ingest(ctx context.Context, collection, key string, value json.RawMessage, owner, source string) (Document, error) {
	if err := ValidateName("collection", collection); err != nil {
		return Document{}, err
	}
	if err := ValidateName("key", key); err != nil {
		return Document{}, err
	}

	doc, err := s.store.Set(ctx, collection, key, value, owner)
	if err != nil {
		return Document{}, err
	}

	if s.metrics != nil {
		s.metrics.DocumentsWritten.WithLabelValues(collection).Inc()
	}
	s.hub.Publish(realtime.Event{
		Action:     realtime.ActionUpdate,
		Collection: collection,
		Key:        key,
		Source:     source,
	})
	return doc, nil
}
