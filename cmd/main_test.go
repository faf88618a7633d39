package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/rebar/internal/config"
	"github.com/okian/rebar/pkg/logger"
	"github.com/okian/rebar/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.So(logger.Init(logger.WithOutput(io.Discard)), convey.ShouldBeNil)

		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("REBAR_ADDR", ":8080")
			_ = os.Setenv("REBAR_RETENTION", "20")
			defer func() {
				_ = os.Unsetenv("REBAR_ADDR")
				_ = os.Unsetenv("REBAR_RETENTION")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Retention, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When wiring the service and routes from config", func() {
			ctx := context.Background()
			cfg := config.New()
			cfg.AdminToken = "tok"
			cfg.BackupPath = filepath.Join(t.TempDir(), "rebar.json")

			svc := newService(cfg, logger.Get())
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()
			handler := newHandler(cfg, svc)

			convey.Convey("Then a submission flows through to the ranked list", func() {
				body := `{"host":"github","owner":"golang","repo":"go","description":"go"}`
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(body)))
				convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)

				w = httptest.NewRecorder()
				handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items", nil))
				convey.So(strings.TrimSpace(w.Body.String()), convey.ShouldEqual, "[0]")
			})

			convey.Convey("Then stopping writes the configured backup", func() {
				convey.So(svc.Stop(ctx), convey.ShouldBeNil)
				_, err := os.Stat(cfg.BackupPath)
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When updating system metrics", func() {
			updateSystemMetrics()

			convey.Convey("Then the registry is populated", func() {
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				convey.So(families, convey.ShouldNotBeEmpty)
			})
		})
	})
}
