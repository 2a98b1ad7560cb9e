package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/unsa/eventhub/internal/api/validation"
	"github.com/unsa/eventhub/internal/huberrors"
	"github.com/unsa/eventhub/internal/observability"
)

const defaultCallTimeout = 15 * time.Second

// ParamSpec describes one tool parameter for catalog listings.
type ParamSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// Info is the public description of a tool.
type Info struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params"`
}

// binder fills a params struct from the raw call arguments.
type binder func(dst any) error

// Tool is one catalog entry. Handlers return either an envelope or an error; the catalog turns
// errors into ERROR envelopes prefixed with errorPrefix.
type Tool struct {
	Info

	errorPrefix string
	run         func(ctx context.Context, bind binder) (Envelope, error)
}

// newTool binds a typed handler: arguments are decoded into P and validated before h runs.
func newTool[P any](
	name, description, errorPrefix string,
	params []ParamSpec,
	h func(ctx context.Context, p P) (Envelope, error),
) *Tool {
	if params == nil {
		params = []ParamSpec{}
	}

	return &Tool{
		Info:        Info{Name: name, Description: description, Params: params},
		errorPrefix: errorPrefix,
		run: func(ctx context.Context, bind binder) (Envelope, error) {
			var p P
			if err := bind(&p); err != nil {
				return Envelope{}, huberrors.NewValidationError("", "invalid arguments: "+err.Error())
			}

			if err := validation.ValidateStruct(&p); err != nil {
				return Envelope{}, huberrors.NewValidationError("", err.Error())
			}

			return h(ctx, p)
		},
	}
}

// Options configures a Catalog.
type Options struct {
	// Timeout bounds each call. Zero uses 15s.
	Timeout time.Duration
	Metrics observability.ToolMetrics
}

// Catalog is the fixed set of tools, built once at startup.
type Catalog struct {
	tools   map[string]*Tool
	timeout time.Duration
	metrics observability.ToolMetrics
}

// NewCatalog builds the catalog over deps.
func NewCatalog(deps Deps, opts Options) *Catalog {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	h := &handlers{deps: deps.withDefaults()}

	c := &Catalog{
		tools:   make(map[string]*Tool),
		timeout: timeout,
		metrics: opts.Metrics,
	}

	for _, t := range h.tools() {
		if _, dup := c.tools[t.Name]; dup {
			panic("tools: duplicate tool " + t.Name)
		}

		c.tools[t.Name] = t
	}

	return c
}

// List returns the catalog sorted by tool name.
func (c *Catalog) List() []Info {
	out := make([]Info, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t.Info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Has reports whether name is a known tool.
func (c *Catalog) Has(name string) bool {
	_, ok := c.tools[name]

	return ok
}

// Call invokes name with JSON arguments. It always returns an envelope and never panics.
func (c *Catalog) Call(ctx context.Context, name string, args json.RawMessage) Envelope {
	return c.invoke(ctx, name, func(dst any) error {
		if len(bytes.TrimSpace(args)) == 0 || bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
			return nil
		}

		return json.Unmarshal(args, dst) //nolint:wrapcheck // surfaced as a validation message
	})
}

// CallValues invokes name with form or query-string arguments.
func (c *Catalog) CallValues(ctx context.Context, name string, values url.Values) Envelope {
	return c.invoke(ctx, name, func(dst any) error {
		return validation.DecodeValues(values, dst)
	})
}

func (c *Catalog) invoke(ctx context.Context, name string, bind binder) (env Envelope) {
	start := time.Now()
	outcome := "ok"

	tool, ok := c.tools[name]
	if !ok {
		return Error(name, "Unknown tool: "+name)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := observability.Tracer().Start(ctx, "tool "+name)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "tools: handler panicked",
				"tool", name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			span.SetStatus(codes.Error, "panic")

			outcome = "panic"
			env = Error(name, tool.errorPrefix+"internal error")
		}

		span.SetAttributes(attribute.String("tool.outcome", outcome))

		if c.metrics != nil {
			c.metrics.RecordToolCall(ctx, name, outcome, time.Since(start))
		}
	}()

	result, err := tool.run(ctx, bind)
	if err != nil {
		kind := huberrors.KindOf(err)
		outcome = string(kind)

		span.RecordError(err)

		msg := err.Error()
		if kind == huberrors.KindInternal {
			slog.ErrorContext(ctx, "tools: call failed", "tool", name, "error", err)

			msg = "internal error"
			if errors.Is(err, context.DeadlineExceeded) {
				msg = "request timed out"
			}
		} else {
			slog.DebugContext(ctx, "tools: call rejected", "tool", name, "kind", string(kind), "error", err)
		}

		return Error(name, tool.errorPrefix+msg)
	}

	switch result.Type {
	case 0:
		outcome = string(huberrors.KindInternal)

		return Error(name, tool.errorPrefix+"internal error")
	case TypeText:
		outcome = "text"
	case TypeError:
		outcome = string(huberrors.KindNotFound)
	}

	if result.ToolName == "" {
		result.ToolName = name
	}

	return result
}
