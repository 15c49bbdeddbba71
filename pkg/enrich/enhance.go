package enrich

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
	"github.com/OFFIS-RIT/docgraph/pkg/relate"
	"github.com/OFFIS-RIT/docgraph/pkg/store"
)

// EnhancedConfidence is the floor for the confidence of an enhanced
// relationship.
const EnhancedConfidence = 0.7

// Enhance assigns a semantic subtype and a confidence to relationships that
// have a context but no confidence yet. Relationships for which classifier
// finds no subtype stay untouched. A nil classifier selects the keyword
// classifier; limit <= 0 means store.EnhancementLimit.
func Enhance(ctx context.Context, s store.GraphStore, classifier relate.SemanticClassifier, limit int) (Result, error) {
	if classifier == nil {
		classifier = relate.NewKeywordSemanticClassifier()
	}
	if limit <= 0 {
		limit = store.EnhancementLimit
	}

	candidates, err := s.QueryRelationshipsForEnhancement(ctx, limit)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query relationships for enhancement: %w", err)
	}
	if len(candidates) == 0 {
		return Result{}, nil
	}

	var res Result
	err = store.WithTx(ctx, s, func(tx store.GraphTx) error {
		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return err
			}
			rel := c.Relationship
			subtype := classifier.Classify(rel.Type, rel.Properties.Context)
			if subtype == "" {
				continue
			}
			confidence := max(EnhancedConfidence,
				relate.EstimateConfidence(c.SourceName, c.TargetName, rel.Properties.Context, rel.Type))

			err := tx.UpdateRelationship(ctx, rel.ID, common.RelationshipProperties{
				SemanticType: subtype,
				Confidence:   common.Float(confidence),
			})
			if err != nil {
				logger.Warn("[Enhance] Error updating relationship", "id", rel.ID, "type", rel.Type, "err", err)
				continue
			}
			res.RelationshipsUpdated++
		}
		return nil
	})
	if err != nil {
		return Result{}, &common.TransactionError{Scope: "relationship enhancement", Err: err}
	}

	logger.Info("[Enhance] Enhanced relationships",
		"enhanced", res.RelationshipsUpdated, "candidates", len(candidates))
	return res, nil
}
