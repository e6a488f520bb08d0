package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/novaflow/internal/domain"
)

// embedConcurrency bounds concurrent embedding calls during indexing.
const embedConcurrency = 4

// IndexBrandDocs embeds and stores brand kit documents. Embedding runs
// concurrently; rows are inserted in input order so assigned ids follow the
// request. Any embedding failure aborts the whole request before anything is
// stored.
func (s *Service) IndexBrandDocs(ctx context.Context, req *domain.IndexDocsRequest) (*domain.IndexDocsResponse, error) {
	if len(req.Docs) == 0 {
		return nil, fmt.Errorf("docs must not be empty")
	}
	dim := req.EmbeddingDimension
	if dim <= 0 {
		dim = taskEmbeddingDim
	}

	vecs := make([][]float32, len(req.Docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, doc := range req.Docs {
		g.Go(func() error {
			vec, err := s.provider.EmbedText(gctx, doc.Content, dim)
			if err != nil {
				return fmt.Errorf("failed to embed doc %q: %w", doc.Title, err)
			}
			vecs[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &domain.IndexDocsResponse{OK: true}
	for i, in := range req.Docs {
		doc := &domain.BrandDoc{
			Title:     in.Title,
			Source:    in.Source,
			Content:   in.Content,
			Tags:      strings.Join(in.Tags, ","),
			Embedding: vecs[i],
		}
		if err := s.store.CreateBrandDoc(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to store doc %q: %w", in.Title, err)
		}
		resp.Indexed++
		resp.DocIDs = append(resp.DocIDs, doc.ID)
	}
	return resp, nil
}
