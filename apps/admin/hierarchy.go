package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core/pagetree"
)

func (cli *commandLine) loadHierarchy(path string, replace bool) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening hierarchy document")
	}
	defer f.Close()

	doc, err := pagetree.DecodeDocument(f)
	if err != nil {
		return err
	}
	tree, err := cli.trees.Import(context.Background(), doc, cli.blocks, replace)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "hierarchy %q loaded: %d sections\n", tree.Name, len(tree.Nodes()))
	return nil
}

func (cli *commandLine) dumpHierarchy(name, path string) error {
	doc, err := cli.trees.Export(context.Background(), name, cli.blocks)
	if err != nil {
		return err
	}

	var w io.Writer = cli.out
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer f.Close()
		w = f
	}
	return pagetree.EncodeDocument(w, doc)
}
