package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/oaiiae/huma-contacts/datastores"
	"github.com/oaiiae/huma-contacts/handlers"
	"github.com/oaiiae/huma-contacts/router"
)

type ServerOptions struct {
	Host              string        `short:"H" doc:"host to listen on"                    default:""`
	Port              string        `short:"p" doc:"port to listen on"                    default:"8888"`
	ReadHeaderTimeout time.Duration `          doc:"time allowed to read request headers" default:"15s"`
}

func NewServer(options *ServerOptions, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              options.Host + ":" + options.Port,
		ReadHeaderTimeout: options.ReadHeaderTimeout,
		Handler:           handler,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}

type ContactsOptions struct {
	ContactsFile string `doc:"file holding the contacts, - keeps them in memory only" default:"contacts.txt"`
}

// NewContacts loads the contacts directory described by options.
func NewContacts(ctx context.Context, options *ContactsOptions, logger *slog.Logger) *datastores.ContactsDirectory {
	logger = logger.With("component", "contacts")
	var persister datastores.ContactsPersister = datastores.NopPersister{}
	if options.ContactsFile != "-" && options.ContactsFile != "" {
		persister = &datastores.ContactsFile{Path: options.ContactsFile, Logger: logger}
	}
	return datastores.NewContactsDirectory(ctx, persister, logger)
}

type RouterOptions struct {
	EndpointsPrefix string `doc:"mount endpoints at a prefix" default:"/api"`
}

func NewRouter(
	options *RouterOptions,
	title string,
	version string,
	revision string,
	created string,
	contacts *datastores.ContactsDirectory,
	logger *slog.Logger,
	opts ...func(huma.API),
) http.Handler {
	buildinfoMetric := joinQuote("build_info{goversion=", runtime.Version(),
		",title=", title,
		",version=", version,
		",revision=", revision,
		",created=", created,
		"} 1\n")
	metriks := metrics.NewSet()
	persistFailures := meterContacts(metriks, contacts)
	logError := ctxlog{}.errorHandler(logger)
	contactsErrorHandler := func(ctx context.Context, err error) {
		if errors.Is(err, datastores.ErrPersist) {
			persistFailures.Inc()
		}
		logError(ctx, err)
	}

	return router.New(title, version,
		func(_ http.ResponseWriter, _ *http.Request) {},
		func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, buildinfoMetric)
			metriks.WritePrometheus(w)
			metrics.WriteProcessMetrics(w)
		},
		append([]func(huma.API){
			router.OptUseMiddleware(
				ctxlog{}.loggerMiddleware(logger),
				meterRequests(metriks),
				ctxlog{}.recoverMiddleware(logger),
			),
			router.OptGroup(options.EndpointsPrefix,
				router.OptGroup("/contacts", router.OptAutoRegister(&handlers.Contacts{
					Store:        contacts,
					ErrorHandler: contactsErrorHandler,
				})),
				router.OptGroup("/stats", router.OptAutoRegister(&handlers.Stats{
					Store:        contacts,
					ErrorHandler: logError,
				})),
			),
		}, opts...)...,
	)
}

// ctxlog is a [context.Context] key and acts as a virtual package for operations related to it.
type ctxlog struct{}

// loggerMiddleware returns a middleware that sets a [slog.Logger] in
// the [context.Context] and logs the request after it has terminated.
// Requests without an X-Request-Id header get a random one.
func (key ctxlog) loggerMiddleware(parent *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		requestID := ctx.Header("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		logger := parent.With("x-request-id", requestID)

		start := time.Now()
		next(huma.WithValue(ctx, key, logger.WithGroup("op").With("id", ctx.Operation().OperationID)))

		logger.LogAttrs(context.Background(), slog.LevelInfo,
			joinSpace(ctx.Operation().Method, ctx.Operation().Path, ctx.Version().Proto),
			slog.String("from", ctx.RemoteAddr()),
			slog.String("ref", ctx.Header("Referer")),
			slog.String("ua", ctx.Header("User-Agent")),
			slog.Int("status", ctx.Status()),
			slog.Duration("dur", time.Since(start)),
		)
	}
}

// recoverMiddleware returns a middleware that recovers and logs the value from panic.
// Also sets status response to [http.StatusInternalServerError].
func (key ctxlog) recoverMiddleware(fallback *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			v := recover()
			if v != nil {
				logger, ok := ctx.Context().Value(key).(*slog.Logger)
				if !ok {
					logger = fallback
				}
				logger.LogAttrs(context.Background(), slog.LevelError, "panic occurred", slog.Any("recovered", v))
				ctx.SetStatus(http.StatusInternalServerError)
			}
		}()
		next(ctx)
	}
}

// errorHandler returns a function that gets the [slog.Logger] from [context.Context] and logs the error.
// Persist failures are logged as warnings since the change they report was applied.
func (key ctxlog) errorHandler(fallback *slog.Logger) func(context.Context, error) {
	return func(ctx context.Context, err error) {
		level := slog.LevelError
		attrs := []slog.Attr{slog.Any("err", err)}

		var statusErr huma.StatusError
		switch {
		case errors.As(err, &statusErr):
			switch statusErr.GetStatus() / 100 {
			case 5: //nolint: mnd // 5XX HTTP Status Codes
				level = slog.LevelError
			case 4: //nolint: mnd // 4XX HTTP Status Codes
				level = slog.LevelWarn
			case 3: //nolint: mnd // 3XX HTTP Status Codes
				level = slog.LevelInfo
			}
			attrs = append(attrs, slog.Int("status", statusErr.GetStatus()))
		case errors.Is(err, datastores.ErrPersist):
			level = slog.LevelWarn
		}

		logger, ok := ctx.Value(key).(*slog.Logger)
		if !ok {
			logger = fallback
		}
		logger.LogAttrs(context.Background(), level, "error occurred", attrs...)
	}
}

func meterRequests(set *metrics.Set) func(huma.Context, func(huma.Context)) {
	type ref struct {
		*metrics.Counter
		*metrics.PrometheusHistogram
	}

	refs := sync.Map{}
	refsMu := sync.Mutex{}
	buckets := metrics.ExponentialBuckets(1e-3, 5, 6) //nolint: mnd // arbitrary

	return func(ctx huma.Context, next func(huma.Context)) {
		op, start := ctx.Operation(), time.Now()
		next(ctx)

		uid := op.OperationID + http.StatusText(ctx.Status())
		val, ok := refs.Load(uid)
		if !ok {
			refsMu.Lock()
			val, ok = refs.Load(uid)
			if !ok {
				labels := joinQuote("{method=", op.Method, ",path=", op.Path, ",status=", strconv.Itoa(ctx.Status()), "}") //nolint: golines
				val = ref{
					set.NewCounter("http_requests_total" + labels),
					set.NewPrometheusHistogramExt("http_request_duration_seconds"+labels, buckets),
				}
				refs.Store(uid, val)
			}
			refsMu.Unlock()
		}
		valref := val.(ref) //nolint: errcheck // always true
		valref.Counter.Inc()
		valref.PrometheusHistogram.UpdateDuration(start)
	}
}

// meterContacts registers the directory gauges and returns the persist failures counter.
func meterContacts(set *metrics.Set, contacts *datastores.ContactsDirectory) *metrics.Counter {
	stat := func(get func(*datastores.Stats) int) func() float64 {
		return func() float64 {
			stats, err := contacts.Stats(context.Background())
			if err != nil {
				return 0
			}
			return float64(get(stats))
		}
	}
	set.NewGauge("contacts_total", func() float64 { return float64(contacts.Len()) })
	set.NewGauge("contacts_with_email", stat(func(s *datastores.Stats) int { return s.WithEmail }))
	set.NewGauge("contacts_with_address", stat(func(s *datastores.Stats) int { return s.WithAddress }))
	return set.NewCounter("contacts_persist_failures_total")
}

// joinQuote is [strings.Join] with " as separator.
func joinQuote(elems ...string) string { return strings.Join(elems, `"`) }

// joinSpace is [strings.Join] with space as separator.
func joinSpace(elems ...string) string { return strings.Join(elems, ` `) }
