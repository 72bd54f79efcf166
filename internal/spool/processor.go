// Package spool ingests insert requests dropped as YAML files into a
// directory. Accepted files move to processed/, anything else to rejected/
// next to a .err sidecar describing why. A name already taken in the
// archive gets a random suffix so earlier archives are never replaced.
package spool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/models"
	"github.com/starford/promptdb/internal/parser"
	"github.com/starford/promptdb/internal/storage"
)

const (
	ProcessedDir = "processed"
	RejectedDir  = "rejected"
)

// Submitter commits one insert request.
type Submitter interface {
	Insert(ctx context.Context, req models.InsertRequest) models.InsertResult
}

// Outcome is the result of processing one spool file. Status is the first
// non-ok status among its documents, or ok.
type Outcome struct {
	Path    string
	Status  apperr.Status
	Message string
	Results []models.InsertResult
}

// Accepted reports whether every document in the file was committed.
func (o Outcome) Accepted() bool { return o.Status.OK() }

// Callback is invoked after each processed file.
type Callback func(Outcome)

// Processor moves spool files through parse, submit and archive.
type Processor struct {
	files  storage.Provider
	sub    Submitter
	logger *slog.Logger
	cb     Callback
}

// NewProcessor builds a processor. cb may be nil.
func NewProcessor(files storage.Provider, sub Submitter, logger *slog.Logger, cb Callback) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{files: files, sub: sub, logger: logger, cb: cb}
}

// sidecar is the YAML body of a rejected/<name>.err file.
type sidecar struct {
	Status    string          `yaml:"status"`
	Code      int             `yaml:"code"`
	Message   string          `yaml:"message"`
	Documents []sidecarResult `yaml:"documents,omitempty"`
}

type sidecarResult struct {
	Index   int    `yaml:"index"`
	Status  string `yaml:"status"`
	RowID   uint64 `yaml:"row_id,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// Process handles the spool file at rel. Each document is submitted
// independently; documents committed before a failing one stay committed.
// The returned error is only set when the file could not be read or
// archived.
func (p *Processor) Process(ctx context.Context, rel string) (Outcome, error) {
	out := Outcome{Path: rel}

	data, err := p.files.Read(rel)
	if err != nil {
		// Unreadable but still present (e.g. oversize): reject it so it is
		// not retried on every drain.
		out.Status = apperr.StatusGenericError
		out.Message = err.Error()
		if ferr := p.finish(out); ferr != nil {
			return out, err
		}
		return out, nil
	}

	reqs, err := parser.Parse(data)
	if err != nil {
		out.Status = apperr.StatusOf(err)
		out.Message = err.Error()
		return out, p.finish(out)
	}

	for i, req := range reqs {
		res := p.sub.Insert(ctx, req)
		out.Results = append(out.Results, res)
		if !res.Status.OK() && out.Status.OK() {
			out.Status = res.Status
			out.Message = fmt.Sprintf("document %d: %s", i, res.Message)
		}
	}
	return out, p.finish(out)
}

// finish archives the file and fires the callback.
func (p *Processor) finish(out Outcome) error {
	if out.Accepted() {
		if _, err := p.archive(out.Path, ProcessedDir, false); err != nil {
			return err
		}
		p.logger.Info("spool: accepted", slog.String("path", out.Path), slog.Int("rows", len(out.Results)))
	} else {
		name, err := p.archive(out.Path, RejectedDir, true)
		if err != nil {
			return err
		}
		if err := p.writeSidecar(name, out); err != nil {
			p.logger.Warn("spool: sidecar failed", slog.String("path", out.Path), slog.String("error", err.Error()))
		}
		p.logger.Warn("spool: rejected",
			slog.String("path", out.Path),
			slog.String("status", out.Status.String()),
			slog.String("error", out.Message))
	}
	if p.cb != nil {
		p.cb(out)
	}
	return nil
}

// archiveAttempts bounds the suffixed names tried before giving up.
const archiveAttempts = 4

// archive moves rel into dir under its base name, or under a suffixed name
// when an earlier archive (or its sidecar) already holds that name. It
// returns the name used.
func (p *Processor) archive(rel, dir string, withSidecar bool) (string, error) {
	base := filepath.Base(rel)
	name := base
	for range archiveAttempts {
		free, err := p.nameFree(dir, name, withSidecar)
		if err != nil {
			return "", err
		}
		if free {
			err = p.files.Move(rel, filepath.Join(dir, name))
			if !errors.Is(err, storage.ErrExists) {
				return name, err
			}
		}
		name = suffixedName(base)
	}
	return "", fmt.Errorf("spool: no free name for %s in %s: %w", base, dir, storage.ErrExists)
}

func (p *Processor) nameFree(dir, name string, withSidecar bool) (bool, error) {
	taken, err := p.files.Exists(filepath.Join(dir, name))
	if err != nil || taken {
		return false, err
	}
	if withSidecar {
		taken, err = p.files.Exists(filepath.Join(dir, SidecarName(name)))
	}
	return !taken, err
}

// suffixedName inserts a short random tag before the extension:
// req.yaml becomes req-1a2b3c4d.yaml.
func suffixedName(base string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + uuid.NewString()[:8] + ext
}

func (p *Processor) writeSidecar(name string, out Outcome) error {
	sc := sidecar{Status: out.Status.String(), Code: int(out.Status), Message: out.Message}
	for i, r := range out.Results {
		sc.Documents = append(sc.Documents, sidecarResult{
			Index: i, Status: r.Status.String(), RowID: r.RowID, Message: r.Message,
		})
	}
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	return p.files.Write(filepath.Join(RejectedDir, SidecarName(name)), data)
}

// SidecarName returns the .err file name for a rejected request file.
func SidecarName(base string) string {
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".err"
}

// Drain processes every request file currently in the spool root and
// returns how many were handled.
func (p *Processor) Drain(ctx context.Context) (int, error) {
	files, err := p.files.List("")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := p.Process(ctx, f.Path); err != nil {
			p.logger.Warn("spool: process failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		n++
	}
	return n, nil
}
