package catalog

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"

	"github.com/xenking/myshop/internal/domain/product"
)

// maxLineBytes bounds a single NDJSON line.
const maxLineBytes = 1 << 20

// ReadFile streams the products in path to fn. Files ending in ".gz" are
// decompressed with pgzip. Blank lines are skipped; a malformed line aborts
// the read with its line number.
func ReadFile(ctx context.Context, path string, fn func(product.Product) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	if err := read(ctx, r, fn); err != nil {
		return errors.Wrap(err, path)
	}
	return nil
}

func read(ctx context.Context, r io.Reader, fn func(product.Product) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	d := jx.GetDecoder()
	defer jx.PutDecoder(d)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}

		d.ResetBytes(b)
		p, err := DecodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scan")
	}
	return nil
}
