// chunkstore inspects, merges and verifies chunked datasets.
//
//	chunkstore inspect ./data
//	chunkstore merge --expect 8 ./data
//	chunkstore verify --cache 1GB s3://bucket/datasets/train
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/hupe1980/chunkstore"
	"github.com/hupe1980/chunkstore/blobstore/s3"
	"github.com/hupe1980/chunkstore/codec"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		printUsage(out)
		return errors.New("missing command")
	}

	switch args[0] {
	case "inspect":
		return inspect(ctx, args[1:], out)
	case "merge":
		return merge(ctx, args[1:], out)
	case "verify":
		return verify(ctx, args[1:], out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		printUsage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(out io.Writer) {
	fmt.Fprint(out, `Usage: chunkstore <command> [flags] <dataset>

Commands:
  inspect   print a summary of index.json
  merge     merge producer fragments into index.json
  verify    read and check every item

A dataset is a local directory or s3://bucket/prefix.
`)
}

// commonFlags are shared by every command.
type commonFlags struct {
	logLevel string
	endpoint string
	region   string
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.StringVar(&c.endpoint, "s3-endpoint", "", "custom S3 endpoint for s3:// datasets")
	fs.StringVar(&c.region, "s3-region", "", "AWS region for s3:// datasets")
}

func (c *commonFlags) options() ([]chunkstore.Option, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	return []chunkstore.Option{chunkstore.WithLogLevel(level)}, nil
}

func (c *commonFlags) backend(ctx context.Context, target string) (chunkstore.Backend, error) {
	rest, ok := strings.CutPrefix(target, "s3://")
	if !ok {
		return chunkstore.Local(target), nil
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return chunkstore.Backend{}, fmt.Errorf("invalid dataset %q", target)
	}

	opts := []s3.Option{s3.WithPrefix(prefix)}
	if c.region != "" {
		opts = append(opts, s3.WithRegion(c.region))
	}
	if c.endpoint != "" {
		opts = append(opts, s3.WithEndpoint(c.endpoint))
	}
	store, err := s3.New(ctx, bucket, opts...)
	if err != nil {
		return chunkstore.Backend{}, err
	}
	return chunkstore.Remote(store), nil
}

func parse(name string, args []string, fs *pflag.FlagSet) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected one dataset argument, got %d", name, fs.NArg())
	}
	return fs.Arg(0), nil
}

type chunkSummary struct {
	Filename    string `yaml:"filename" json:"filename"`
	Items       int    `yaml:"items" json:"items"`
	Stored      string `yaml:"stored" json:"stored"`
	Raw         string `yaml:"raw" json:"raw"`
	Compression string `yaml:"compression,omitempty" json:"compression,omitempty"`
}

type summary struct {
	Items       int64          `yaml:"items" json:"items"`
	Chunks      int            `yaml:"chunks" json:"chunks"`
	Ranks       []int          `yaml:"ranks" json:"ranks"`
	Stored      string         `yaml:"stored" json:"stored"`
	Raw         string         `yaml:"raw" json:"raw"`
	ChunkSize   int            `yaml:"chunk_size,omitempty" json:"chunk_size,omitempty"`
	ChunkBytes  string         `yaml:"chunk_bytes,omitempty" json:"chunk_bytes,omitempty"`
	Compression string         `yaml:"compression,omitempty" json:"compression,omitempty"`
	Schema      string         `yaml:"schema" json:"schema"`
	ChunkList   []chunkSummary `yaml:"chunk_list,omitempty" json:"chunk_list,omitempty"`
}

func summarize(ix *chunkstore.Index, withChunks bool) summary {
	stored, raw := ix.Bytes()
	s := summary{
		Items:       ix.NumItems(),
		Chunks:      len(ix.Chunks),
		Ranks:       []int{},
		Stored:      chunkstore.FormatSize(stored),
		Raw:         chunkstore.FormatSize(raw),
		ChunkSize:   ix.Config.ChunkSize,
		Compression: ix.Config.Compression,
		Schema:      ix.Config.Schema.Format(),
	}
	if ix.Config.ChunkBytes > 0 {
		s.ChunkBytes = chunkstore.FormatSize(ix.Config.ChunkBytes)
	}
	for _, c := range ix.Chunks {
		if n := len(s.Ranks); n == 0 || s.Ranks[n-1] != c.Rank {
			s.Ranks = append(s.Ranks, c.Rank)
		}
		if withChunks {
			s.ChunkList = append(s.ChunkList, chunkSummary{
				Filename:    c.Filename,
				Items:       c.ChunkSize,
				Stored:      chunkstore.FormatSize(c.ChunkBytes),
				Raw:         chunkstore.FormatSize(c.RawBytes),
				Compression: c.Compression,
			})
		}
	}
	return s
}

func inspect(ctx context.Context, args []string, out io.Writer) error {
	var (
		common     commonFlags
		format     string
		withChunks bool
	)
	fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	common.register(fs)
	fs.StringVarP(&format, "output", "o", "yaml", "output format (yaml, json)")
	fs.BoolVar(&withChunks, "chunks", false, "list every chunk")

	target, err := parse("inspect", args, fs)
	if err != nil {
		return err
	}
	opts, err := common.options()
	if err != nil {
		return err
	}
	backend, err := common.backend(ctx, target)
	if err != nil {
		return err
	}

	ix, err := chunkstore.LoadIndex(ctx, backend, opts...)
	if err != nil {
		return err
	}
	s := summarize(ix, withChunks)

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		data, err := codec.Default.Marshal(s)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func merge(ctx context.Context, args []string, out io.Writer) error {
	var (
		common commonFlags
		expect int
	)
	fs := pflag.NewFlagSet("merge", pflag.ContinueOnError)
	common.register(fs)
	fs.IntVar(&expect, "expect", 0, "fail unless exactly this many fragments are present")

	target, err := parse("merge", args, fs)
	if err != nil {
		return err
	}
	opts, err := common.options()
	if err != nil {
		return err
	}
	backend, err := common.backend(ctx, target)
	if err != nil {
		return err
	}

	ix, err := chunkstore.Merge(ctx, backend, append(opts, chunkstore.WithExpectedFragments(expect))...)
	if err != nil {
		return err
	}
	stored, _ := ix.Bytes()
	fmt.Fprintf(out, "merged %d chunks, %d items, %s\n", len(ix.Chunks), ix.NumItems(), chunkstore.FormatSize(stored))
	return nil
}

func verify(ctx context.Context, args []string, out io.Writer) error {
	var (
		common commonFlags
		cache  string
	)
	fs := pflag.NewFlagSet("verify", pflag.ContinueOnError)
	common.register(fs)
	fs.StringVar(&cache, "cache", "256MB", "reader cache budget")

	target, err := parse("verify", args, fs)
	if err != nil {
		return err
	}
	opts, err := common.options()
	if err != nil {
		return err
	}
	backend, err := common.backend(ctx, target)
	if err != nil {
		return err
	}

	r, err := chunkstore.OpenReader(ctx, backend, append(opts, chunkstore.WithCacheBudgetString(cache))...)
	if err != nil {
		return err
	}
	defer r.Close()

	var bad int
	for ci, c := range r.Chunks() {
		start, end, err := r.Bounds(ci)
		if err != nil {
			return err
		}
		for i := start; i < end; i++ {
			if _, err := r.Read(ctx, chunkstore.ChunkedIndex{Index: i, ChunkIndex: ci}); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fmt.Fprintf(out, "%s: %v\n", c.Filename, err)
				bad++
				break
			}
		}
		// Every chunk is read once.
		r.Evict(ci)
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d chunks failed verification: %w", bad, len(r.Chunks()), chunkstore.ErrCorrupted)
	}
	fmt.Fprintf(out, "verified %d chunks, %d items\n", len(r.Chunks()), r.Len())
	return nil
}
