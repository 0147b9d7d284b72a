package pagetree

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type (
	// Document is the portable form of a Hierarchy, blocks content included.
	Document struct {
		Name    string          `yaml:"name" json:"name"`
		BaseURL string          `yaml:"base_url" json:"base_url"`
		Root    SectionDocument `yaml:"root" json:"root"`
	}

	SectionDocument struct {
		Label    string            `yaml:"label" json:"label"`
		Slug     string            `yaml:"slug,omitempty" json:"slug,omitempty"`
		Blocks   []BlockDocument   `yaml:"blocks,omitempty" json:"blocks,omitempty"`
		Children []SectionDocument `yaml:"children,omitempty" json:"children,omitempty"`
	}

	BlockDocument struct {
		Label    string                 `yaml:"label,omitempty" json:"label,omitempty"`
		CSSExtra string                 `yaml:"css_extra,omitempty" json:"css_extra,omitempty"`
		Kind     string                 `yaml:"kind" json:"kind"`
		Content  map[string]interface{} `yaml:"content,omitempty" json:"content,omitempty"`
	}
)

// DecodeDocument reads a YAML hierarchy document.
func DecodeDocument(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, errors.Wrap(err, "decoding hierarchy document")
	}
	if doc.Name == "" {
		return Document{}, errors.New("hierarchy document has no name")
	}
	if doc.BaseURL == "" {
		doc.BaseURL = "/pages/" + doc.Name + "/"
	}
	return doc, nil
}

// EncodeDocument writes doc as YAML.
func EncodeDocument(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding hierarchy document")
	}
	return enc.Close()
}

// Import saves doc as a new hierarchy. With replace, an existing hierarchy of the same name is deleted first.
func (svc *Service) Import(ctx context.Context, doc Document, content ContentStore, replace bool) (*Tree, error) {
	existing, err := svc.repo.GetHierarchy(ctx, doc.Name)
	switch {
	case err == nil:
		if !replace {
			return nil, ErrHierarchyExists
		}
		if err = svc.repo.DeleteHierarchy(ctx, existing.ID); err != nil {
			return nil, errors.Wrap(err, "deleting hierarchy")
		}
	case errors.Cause(err) != ErrHierarchyNotFound:
		return nil, errors.Wrap(err, "getting hierarchy")
	}

	h, err := svc.repo.CreateHierarchy(ctx, Hierarchy{Name: doc.Name, BaseURL: doc.BaseURL})
	if err != nil {
		return nil, errors.Wrap(err, "creating hierarchy")
	}

	var create func(sd SectionDocument, parentID int64, pos int) error
	create = func(sd SectionDocument, parentID int64, pos int) error {
		s, err := svc.repo.CreateSection(ctx, Section{
			HierarchyID: h.ID,
			ParentID:    parentID,
			Label:       sd.Label,
			Slug:        sd.Slug,
			Position:    pos,
		})
		if err != nil {
			return errors.Wrapf(err, "creating section %q", sd.Label)
		}
		for i, bd := range sd.Blocks {
			contentID, err := content.CreateContent(ctx, bd.Kind, bd.Content)
			if err != nil {
				return errors.Wrapf(err, "creating %s block content", bd.Kind)
			}
			pb := PageBlock{SectionID: s.ID, Position: i, Label: bd.Label, CSSExtra: bd.CSSExtra, Kind: bd.Kind, ContentID: contentID}
			if _, err = svc.repo.CreatePageBlock(ctx, pb); err != nil {
				return errors.Wrap(err, "creating page block")
			}
		}
		for i, child := range sd.Children {
			if child.Slug == "" {
				return errors.Errorf("section %q has no slug", child.Label)
			}
			if err := create(child, s.ID, i); err != nil {
				return err
			}
		}
		return nil
	}
	if err = create(doc.Root, 0, 0); err != nil {
		return nil, err
	}
	return svc.build(ctx, h)
}

// Export describes the hierarchy called name as a Document.
func (svc *Service) Export(ctx context.Context, name string, content ContentStore) (Document, error) {
	tree, err := svc.Tree(ctx, name)
	if err != nil {
		return Document{}, err
	}

	var describe func(n *Node) (SectionDocument, error)
	describe = func(n *Node) (SectionDocument, error) {
		sd := SectionDocument{Label: n.Label, Slug: n.Slug}
		for _, pb := range n.Blocks {
			data, err := content.ContentAsDict(ctx, pb.Kind, pb.ContentID)
			if err != nil {
				return SectionDocument{}, errors.Wrapf(err, "describing %s block %d", pb.Kind, pb.ContentID)
			}
			sd.Blocks = append(sd.Blocks, BlockDocument{Label: pb.Label, CSSExtra: pb.CSSExtra, Kind: pb.Kind, Content: data})
		}
		for _, c := range n.Children {
			csd, err := describe(c)
			if err != nil {
				return SectionDocument{}, err
			}
			sd.Children = append(sd.Children, csd)
		}
		return sd, nil
	}

	root, err := describe(tree.Root())
	if err != nil {
		return Document{}, err
	}
	return Document{Name: tree.Name, BaseURL: tree.BaseURL, Root: root}, nil
}
