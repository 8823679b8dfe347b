package config_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DashboardCategories, convey.ShouldEqual, 2)
			convey.So(cfg.CriticalRatioThreshold, convey.ShouldEqual, 0.10)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the duration helpers should convert units", func() {
			cfg.SessionTTLMinutes = 2
			cfg.GeoTimeoutMS = 250
			cfg.GeoCacheTTLSeconds = 5
			cfg.CaptchaTTLSeconds = 7
			cfg.SubmitRateWindowSeconds = 9
			convey.So(cfg.SessionTTL(), convey.ShouldEqual, 2*time.Minute)
			convey.So(cfg.GeoTimeout(), convey.ShouldEqual, 250*time.Millisecond)
			convey.So(cfg.GeoCacheTTL(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.CaptchaTTL(), convey.ShouldEqual, 7*time.Second)
			convey.So(cfg.SubmitRateWindow(), convey.ShouldEqual, 9*time.Second)
		})

		convey.Convey("Then the shipped session secret is reported insecure", func() {
			convey.So(cfg.SessionSecret, convey.ShouldEqual, config.DefaultSessionSecret)
			convey.So(cfg.InsecureSessionSecret(), convey.ShouldBeTrue)
			cfg.SessionSecret = "a-real-secret"
			convey.So(cfg.InsecureSessionSecret(), convey.ShouldBeFalse)
		})

		convey.Convey("Then an odd category count should fail validation", func() {
			cfg.DashboardCategories = 3
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
