package wiring

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sophialabs/agenix/internal/domain/convert"
	"github.com/sophialabs/agenix/internal/domain/functions"
	"github.com/sophialabs/agenix/internal/domain/matcher"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/testcase"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
	"github.com/sophialabs/agenix/internal/domain/trace"
	"github.com/sophialabs/agenix/internal/domain/validation"
	inboundhttp "github.com/sophialabs/agenix/internal/infrastructure/inbound/http"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/logging"
	outpath "github.com/sophialabs/agenix/internal/infrastructure/outbound/pathexpr"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/queue"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/template"
	"github.com/sophialabs/agenix/internal/infrastructure/ports"
	"github.com/sophialabs/agenix/internal/infrastructure/services"
	"github.com/sophialabs/agenix/internal/infrastructure/usecases"
)

// Params holds the subset of configuration needed to construct infrastructure components.
type Params struct {
	// RootDir is the YAML test directory. Empty builds a bridge-only
	// container without a test runner.
	RootDir string
	// SettingsFile is skipped when test files are loaded.
	SettingsFile string

	FunctionPrefix       string
	DefaultMessageType   string
	Encoding             string
	PollingInterval      time.Duration
	ReceiveTimeout       time.Duration
	MustFindValidator    bool
	HeaderNameIgnoreCase bool

	MaskKeywords []string
	MaskLogs     bool

	PathCacheSize     int
	TemplateCacheSize int
	TraceSize         int
	RateLimiterTTL    time.Duration

	// Namespaces are the XPath prefix bindings available to every test.
	Namespaces map[string]string

	// Clock defaults to the system clock.
	Clock  ports.Clock
	Logger ports.Logger

	// Settings feeds the HTTP bridge limits; Reloader backs its reload
	// endpoint. Both may be nil.
	Settings func() inboundhttp.Settings
	Reloader inboundhttp.Reloader
}

// Container owns the construction and lifecycle of all infrastructure components.
type Container struct {
	logger     ports.Logger
	masker     *logging.Masker
	converter  *convert.Engine
	evaluators *pathexpr.Registry
	queues     *queue.Registry
	traceLog   *trace.Log
	recorder   *trace.Recorder
	runner     *testcase.Runner
	runTests   *usecases.RunTestsUseCase
	server     *inboundhttp.Server
	throttle   *ratelimit.QueueThrottle
	closeOnce  sync.Once

	functionPrefix string
	headerIgnore   bool
}

// New constructs all infrastructure components. Fallible operations
// (repository) run before the throttle eviction goroutine starts so an
// early failure leaks nothing.
func New(p Params) (*Container, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}

	c := &Container{
		masker:         logging.NewMasker(p.MaskKeywords),
		converter:      convert.New(convert.WithCharset(p.Encoding)),
		functionPrefix: p.FunctionPrefix,
		headerIgnore:   p.HeaderNameIgnoreCase,
	}
	c.logger = p.Logger
	if p.MaskLogs {
		c.logger = logging.NewMaskingLogger(p.Logger, c.masker)
	}

	c.evaluators = pathexpr.NewRegistry(
		outpath.NewJSONPathEvaluator(p.PathCacheSize),
		outpath.NewXPathEvaluator(p.PathCacheSize, p.Namespaces),
	)
	c.queues = queue.NewRegistry(
		queue.WithClock(clk),
		queue.WithLogger(c.logger),
		queue.WithPollingInterval(p.PollingInterval),
	)
	c.traceLog = trace.NewLog(p.TraceSize)
	c.recorder = trace.NewRecorder(c.traceLog, c.masker.Mask, clk.Now)
	c.runner = &testcase.Runner{NewContext: c.NewContext, Logger: c.logger, Now: clk.Now}

	if p.RootDir != "" {
		if _, err := os.Stat(p.RootDir); err != nil {
			return nil, fmt.Errorf("failed to access root directory: %w", err)
		}
		repo, err := filesystem.NewYAMLRepository(p.RootDir, p.SettingsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create repository: %w", err)
		}
		compiler := services.NewCompiler(
			queue.NewEndpoints(c.queues, c.recorder),
			c.evaluators,
			services.WithTemplates(template.NewRegistry(nil), p.TemplateCacheSize),
			services.WithLogger(c.logger),
			services.WithSleeper(clk),
			services.WithDefaultMessageType(message.ParseType(p.DefaultMessageType)),
			services.WithReceiveTimeout(p.ReceiveTimeout),
			services.WithMustFindValidator(p.MustFindValidator),
			services.WithHeaderNameIgnoreCase(p.HeaderNameIgnoreCase),
		)
		c.runTests = usecases.NewRunTestsUseCase(repo, compiler, c.runner, c.logger)
	}

	ttl := p.RateLimiterTTL
	if ttl <= 0 {
		ttl = ratelimit.DefaultIdleTTL
	}
	c.throttle = ratelimit.NewQueueThrottle(clk, ttl)
	c.throttle.StartEviction()

	deps := inboundhttp.Deps{
		Queues:     c.queues,
		Listener:   c.recorder,
		Trace:      c.traceLog,
		Evaluators: c.evaluators,
		NewContext: c.NewContext,
		Limiter:    c.throttle,
		Reloader:   p.Reloader,
		Settings:   p.Settings,
		Logger:     c.logger,
	}
	c.server = inboundhttp.NewServer(deps)

	return c, nil
}

// NewContext creates a test context with the core function and matcher
// libraries and the validator registry bound to it.
func (c *Container) NewContext() *testcontext.Context {
	tctx := testcontext.New(
		testcontext.WithFunctionLibrary(functions.NewCoreLibrary(c.functionPrefix)),
		testcontext.WithMatcherLibrary(matcher.NewCoreLibrary()),
		testcontext.WithConverter(c.converter),
		testcontext.WithMasker(c.masker.Mask),
	)
	validation.NewDefaultRegistry(c.evaluators,
		validation.WithLogger(c.logger),
		validation.WithHeaderValidator(&validation.HeaderValidator{IgnoreCase: c.headerIgnore}),
	).Bind(tctx)
	return tctx
}

// Close releases resources held by the container. It is idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		c.throttle.Stop()
	})
}

// Logger returns the logger every component logs through.
func (c *Container) Logger() ports.Logger {
	return c.logger
}

// Server returns the HTTP queue bridge.
func (c *Container) Server() *inboundhttp.Server {
	return c.server
}

// RunTests returns the run-tests use case, or nil for a bridge-only
// container.
func (c *Container) RunTests() *usecases.RunTestsUseCase {
	return c.runTests
}

// Queues returns the queue registry shared by tests and the bridge.
func (c *Container) Queues() *queue.Registry {
	return c.queues
}

// Trace returns the message exchange log.
func (c *Container) Trace() *trace.Log {
	return c.traceLog
}

// Evaluators returns the JSONPath/XPath evaluator registry.
func (c *Container) Evaluators() *pathexpr.Registry {
	return c.evaluators
}
