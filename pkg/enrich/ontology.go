package enrich

import (
	"context"
	"errors"

	"github.com/OFFIS-RIT/docgraph/pkg/common"
	"github.com/OFFIS-RIT/docgraph/pkg/extract"
	"github.com/OFFIS-RIT/docgraph/pkg/logger"
	"github.com/OFFIS-RIT/docgraph/pkg/store"
)

// Category is one category of the ontology. Its instances are nodes of Kind.
type Category struct {
	Kind      common.NodeKind
	Instances []string
}

// Domain groups categories below the top-level domain concept.
type Domain struct {
	Name       string
	Categories []Category
}

// DefaultOntology returns the System, Organization and Artifact domains. The
// System categories and the teams come from v.
func DefaultOntology(v extract.Vocabulary) []Domain {
	return []Domain{
		{
			Name: "System",
			Categories: []Category{
				{Kind: common.KindModule, Instances: v.Modules},
				{Kind: common.KindService, Instances: v.Services},
				{Kind: common.KindProcess, Instances: v.Processes},
			},
		},
		{
			Name: "Organization",
			Categories: []Category{
				{Kind: common.KindTeam, Instances: v.Teams},
				{Kind: common.KindRole, Instances: []string{
					"Developer", "QA", "Manager", "Product Owner", "Project Manager", "Business Analyst", "Support",
				}},
			},
		},
		{
			Name: "Artifact",
			Categories: []Category{
				{Kind: common.KindDocument, Instances: []string{
					"Meeting Notes", "Specification", "Design Document", "User Story", "Requirements",
				}},
				{Kind: common.KindCode, Instances: []string{
					"Frontend", "Backend", "API", "Database", "Infrastructure",
				}},
				{Kind: common.KindData, Instances: []string{
					"Schema", "Model", "Configuration", "Template", "Metadata",
				}},
			},
		},
	}
}

// Ontology builds the "<project> Domain" concept with its domains (PART_OF
// the concept), categories (PART_OF their domain) and instances (INSTANCE_OF
// their category). Instances that already exist are linked as they are, so
// documents and known entities keep their properties.
func Ontology(ctx context.Context, s store.GraphStore, project string, domains []Domain) (Result, error) {
	// Existing instances are looked up on committed data before the write
	// transaction starts.
	existing := make(map[common.NodeKey]int64)
	for _, d := range domains {
		for _, c := range d.Categories {
			for _, name := range c.Instances {
				key := common.NodeKey{Kind: c.Kind, Field: common.KeyFieldFor(c.Kind), Value: name}
				n, err := s.FindByKey(ctx, key)
				if errors.Is(err, common.ErrNotFound) {
					continue
				}
				if err != nil {
					return Result{}, &common.CollaboratorError{Collaborator: "graph store", Err: err}
				}
				existing[key] = n.ID
			}
		}
	}

	var res Result
	err := store.WithTx(ctx, s, func(tx store.GraphTx) error {
		w := &writer{tx: tx}
		concept, err := w.merge(ctx, &common.EntityNode{
			EntityKind: common.KindDomainConcept,
			Name:       projectName(project) + " Domain",
		})
		if err != nil {
			return err
		}

		for _, d := range domains {
			domain, err := w.merge(ctx, &common.EntityNode{EntityKind: common.KindDomain, Name: d.Name})
			if err != nil {
				return err
			}
			if err := w.relate(ctx, domain, common.RelPartOf, concept); err != nil {
				return err
			}

			for _, c := range d.Categories {
				category, err := w.merge(ctx, &common.EntityNode{EntityKind: common.KindCategory, Name: string(c.Kind)})
				if err != nil {
					return err
				}
				if err := w.relate(ctx, category, common.RelPartOf, domain); err != nil {
					return err
				}

				for _, name := range c.Instances {
					key := common.NodeKey{Kind: c.Kind, Field: common.KeyFieldFor(c.Kind), Value: name}
					id, ok := existing[key]
					if !ok {
						id, err = w.merge(ctx, instanceNode(c.Kind, name))
						if err != nil {
							return err
						}
						existing[key] = id
					}
					if err := w.relate(ctx, id, common.RelInstanceOf, category); err != nil {
						return err
					}
				}
			}
		}
		res = w.res
		return nil
	})
	if err != nil {
		return Result{}, &common.TransactionError{Scope: "ontology", Err: err}
	}

	logger.Info("[Ontology] Created ontology",
		"nodes", res.NodesMerged, "relationships", res.RelationshipsCreated)
	return res, nil
}

func instanceNode(kind common.NodeKind, name string) common.Node {
	if kind == common.KindDocument {
		return &common.DocumentNode{Title: name}
	}
	return &common.EntityNode{EntityKind: kind, Name: name}
}
