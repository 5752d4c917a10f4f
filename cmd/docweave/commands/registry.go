package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"git.home.luguber.info/inful/docweave/internal/compiler"
	"git.home.luguber.info/inful/docweave/internal/registry"
)

// RegistryCmd groups registry inspection commands.
type RegistryCmd struct {
	Dump RegistryDumpCmd `cmd:"" help:"Write the registry as YAML"`
}

// RegistryDumpCmd implements 'registry dump'.
type RegistryDumpCmd struct {
	SourceFlags `embed:""`

	Persisted bool `help:"Read the persisted registry database instead of compiling"`
}

func (d *RegistryDumpCmd) Run(g *Global, root *CLI) error {
	if d.Persisted {
		return d.dumpPersisted(g, root)
	}

	s, err := newSession(g, root, &d.SourceFlags, compiler.Options{DryRun: true})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	result, err := s.compiler.Run(g.Context)
	if err != nil {
		return err
	}
	if err := registry.WriteYAML(g.Stdout, result.Registry.Entries()); err != nil {
		return err
	}
	return reportSharedLinks(g.Stderr, result.Registry)
}

func (d *RegistryDumpCmd) dumpPersisted(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if err := d.apply(cfg); err != nil {
		return err
	}
	if cfg.Registry.Database == "" {
		return errNoDatabase
	}
	store, err := registry.NewSQLiteStore(cfg.Registry.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.LoadAll(g.Context)
	if err != nil {
		return err
	}
	if err := registry.WriteYAML(g.Stdout, entries); err != nil {
		return err
	}
	reg := registry.New()
	reg.Load(entries)
	return reportSharedLinks(g.Stderr, reg)
}

// reportSharedLinks lists link names defined by more than one document and
// the definer that references from other documents resolve to.
func reportSharedLinks(w io.Writer, reg *registry.Registry) error {
	var names []string
	for _, e := range reg.Entries() {
		for name := range e.Links {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	for _, name := range slices.Compact(names) {
		definers := reg.Definers(name)
		if len(definers) < 2 {
			continue
		}
		if _, err := fmt.Fprintf(w, "link %q is defined by %s; %s wins\n",
			name, strings.Join(definers, ", "), definers[0]); err != nil {
			return err
		}
	}
	return nil
}
