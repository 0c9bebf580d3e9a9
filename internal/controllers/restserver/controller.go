// Package restserver serves the AWS query API over HTTP.
package restserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/amrdc/awsapi/internal/database"
	"github.com/amrdc/awsapi/internal/export"
	"github.com/amrdc/awsapi/internal/log"
	"github.com/amrdc/awsapi/internal/query"
	"github.com/amrdc/awsapi/internal/storage"
	"github.com/amrdc/awsapi/internal/warehouse"
	"github.com/amrdc/awsapi/pkg/config"
)

// Warehouse is the query surface the handlers use.
type Warehouse interface {
	Data(ctx context.Context, req query.Request) (*database.ResultSet, error)
	Download(ctx context.Context, req query.Request) (*export.Stream, error)
	List(ctx context.Context) (*warehouse.Listing, error)
	StationYears(ctx context.Context, stations query.Stations) ([]int64, error)
	YearStations(ctx context.Context, years []int) ([]string, error)
	RealtimeStationList(ctx context.Context) (map[string][]string, error)
	RealtimeStations(ctx context.Context, stations query.Stations) (*database.ResultSet, error)
	RealtimeExtremes(ctx context.Context, variable string) (*warehouse.Extremes, error)
}

// Controller owns the HTTP server.
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	FS         fs.FS
	health     *storage.HealthManager
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController builds the server for rc. health may be nil, in which case
// /healthz always reports ok.
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, wh Warehouse, health *storage.HealthManager, logger *zap.SugaredLogger) (*Controller, error) {
	if wh == nil {
		return nil, errors.New("rest server requires a warehouse")
	}
	if logger == nil {
		logger = log.Named("rest")
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		health:     health,
		logger:     logger,
	}

	static, err := GetAssets(rc.StaticDir)
	if err != nil {
		return nil, err
	}
	ctrl.FS = static
	ctrl.handlers = NewHandlers(ctrl, wh)

	ctrl.Server = http.Server{
		Addr:              fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port),
		Handler:           ctrl.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       rc.ReadTimeout,
		WriteTimeout:      rc.WriteTimeout,
	}
	return ctrl, nil
}

// StartController serves until the controller context ends.
func (c *Controller) StartController() error {
	c.logger.Infow("starting REST server", "addr", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("shutting down the REST server...")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := c.Server.Shutdown(ctx); err != nil {
			c.logger.Warnf("REST server shutdown: %v", err)
		}
	}()

	return nil
}

// Handler returns the router wrapped in the server middleware.
func (c *Controller) Handler() http.Handler {
	var h http.Handler = c.setupRouter()
	if !c.restConfig.DisableCompression {
		h = handlers.CompressHandler(h)
	}
	origins := c.restConfig.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	h = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", log.RequestIDHeader}),
		handlers.ExposedHeaders([]string{"Content-Disposition", log.RequestIDHeader}),
	)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(c.logger.Desugar())),
		handlers.PrintRecoveryStack(true),
	)(h)
	return log.AccessLog(c.logger.Named("http"))(h)
}

func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	get := []string{http.MethodGet, http.MethodHead}

	router.HandleFunc("/aws/data", c.handlers.GetData).Methods(get...)
	router.HandleFunc("/aws/list", c.handlers.GetList).Methods(get...)
	router.HandleFunc("/aws/list/stations={stations}", c.handlers.GetStationYears).Methods(get...)
	router.HandleFunc("/aws/list/years={years}", c.handlers.GetYearStations).Methods(get...)

	router.HandleFunc("/realtime/station_list", c.handlers.GetRealtimeStationList).Methods(get...)
	router.HandleFunc("/realtime/station/{stations}", c.handlers.GetRealtimeStations).Methods(get...)
	router.HandleFunc("/realtime/maxmin/{variable}", c.handlers.GetRealtimeMaxMin).Methods(get...)

	router.HandleFunc("/healthz", c.handlers.GetHealth).Methods(get...)
	router.Handle("/metrics", promhttp.Handler()).Methods(get...)

	if c.FS != nil {
		router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(c.FS))))
	}
	router.NotFoundHandler = http.HandlerFunc(c.handlers.NotFound)
	return router
}
