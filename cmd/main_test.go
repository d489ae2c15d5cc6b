package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/logbook/internal/adapters/http/api"
	"github.com/okian/logbook/internal/config"
	"github.com/okian/logbook/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given a sqlite configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.SQLitePath = filepath.Join(t.TempDir(), "logbook.db")

		convey.Convey("When the service is built and started", func() {
			svc, err := buildService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the catalog is seeded and the API answers", func() {
				mux := http.NewServeMux()
				api.NewServer(svc).Register(ctx, mux)

				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/awards", nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"next_awards"`)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"award_id"`)
			})
		})

		convey.Convey("When the award catalog path does not exist", func() {
			cfg.AwardCatalog = filepath.Join(t.TempDir(), "missing.yaml")
			_, err := buildService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the engine is unknown", func() {
			cfg.StoreEngine = "mysql"
			_, err := buildService(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestLoadFromEnv(t *testing.T) {
	convey.Convey("Given LOGBOOK_* variables", t, func() {
		t.Setenv("LOGBOOK_ADDR", ":8081")
		t.Setenv("LOGBOOK_DELETE_POLICY", config.DeleteCascade)
		t.Setenv("LOGBOOK_USER_ID", "7")

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
		convey.So(cfg.DeletePolicy, convey.ShouldEqual, config.DeleteCascade)
		convey.So(cfg.UserID, convey.ShouldEqual, 7)
	})
}
