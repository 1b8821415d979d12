package analytics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/stjepangolemac/splotch/ratelimit"
)

// Handler serves the collect beacon and the stats API.
type Handler struct {
	store    *Store
	hasher   Hasher
	limiter  *ratelimit.Limiter
	siteHost string
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewHandler returns a Handler. Collect requests are limited per IP by
// limiter; siteHost marks referrers from the blog itself as internal.
func NewHandler(store *Store, hasher Hasher, limiter *ratelimit.Limiter, siteHost string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:    store,
		hasher:   hasher,
		limiter:  limiter,
		siteHost: siteHost,
		log:      logger.Sugar().Named("analytics"),
		now:      time.Now,
	}
}

// CollectRequest is the beacon payload.
type CollectRequest struct {
	Path        string `json:"path"`
	Referrer    string `json:"referrer"`
	ScreenSize  string `json:"screen_size"`
	UserAgent   string `json:"user_agent"`
	DurationSec int    `json:"duration_sec"`
}

const (
	maxPathLen       = 2048
	maxReferrerLen   = 2048
	maxScreenSizeLen = 32
	maxUserAgentLen  = 512
	maxDurationSec   = 86400
)

var errInvalidRequest = errors.New("invalid request")

// Validate checks field lengths and ranges.
func (r *CollectRequest) Validate() error {
	switch {
	case r.Path == "" || r.Path[0] != '/':
		return fmt.Errorf("%w: path must be site relative", errInvalidRequest)
	case len(r.Path) > maxPathLen:
		return fmt.Errorf("%w: path longer than %d", errInvalidRequest, maxPathLen)
	case len(r.Referrer) > maxReferrerLen:
		return fmt.Errorf("%w: referrer longer than %d", errInvalidRequest, maxReferrerLen)
	case len(r.ScreenSize) > maxScreenSizeLen:
		return fmt.Errorf("%w: screen_size longer than %d", errInvalidRequest, maxScreenSizeLen)
	case len(r.UserAgent) > maxUserAgentLen:
		return fmt.Errorf("%w: user_agent longer than %d", errInvalidRequest, maxUserAgentLen)
	case r.DurationSec < 0 || r.DurationSec > maxDurationSec:
		return fmt.Errorf("%w: duration_sec out of range", errInvalidRequest)
	}
	return nil
}

// Collect records one beacon. It always answers 204 for accepted or
// ignored beacons so clients cannot probe what was stored.
func (h *Handler) Collect(c echo.Context) error {
	ip := c.RealIP()
	if h.limiter != nil && !h.limiter.Allow(ip) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}

	ctx := c.Request().Context()
	ua := req.UserAgent
	if ua == "" {
		ua = c.Request().UserAgent()
	}
	now := h.now().UTC()

	if bot := BotName(ua); bot != "" {
		err := h.store.SaveBotVisit(ctx, &BotVisit{
			BotName:   bot,
			IPHash:    h.hasher.IP(ip),
			UserAgent: ua,
			Path:      req.Path,
			Timestamp: now,
		})
		if err != nil {
			h.log.Errorw("save bot visit", "err", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	visitor := h.hasher.Visitor(ip, ua)

	// A beacon with a duration is sent on page unload for a view that was
	// already recorded.
	if req.DurationSec > 0 {
		if err := h.store.UpdateVisitDuration(ctx, visitor, req.Path, req.DurationSec); err != nil {
			h.log.Errorw("update visit duration", "err", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	browser, os, device := ParseUserAgent(ua)
	err := h.store.SaveVisit(ctx, &Visit{
		VisitorID:  visitor,
		SessionID:  h.hasher.Session(visitor, now),
		IPHash:     h.hasher.IP(ip),
		Browser:    browser,
		OS:         os,
		Device:     device,
		Path:       req.Path,
		Referrer:   CleanReferrer(req.Referrer, h.siteHost),
		ScreenSize: req.ScreenSize,
		Timestamp:  now,
	})
	if err != nil {
		h.log.Errorw("save visit", "err", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Period is a parsed ?period= value.
type Period struct {
	Name        string
	Days        int
	Granularity Granularity
}

// ParsePeriod maps today, week, month and year to a Period, defaulting to
// week.
func ParsePeriod(name string) Period {
	switch name {
	case "today":
		return Period{Name: name, Days: 1, Granularity: Hourly}
	case "month":
		return Period{Name: name, Days: 30, Granularity: Daily}
	case "year":
		return Period{Name: name, Days: 365, Granularity: Monthly}
	default:
		return Period{Name: "week", Days: 7, Granularity: Daily}
	}
}

// Range returns [from, to) for the period ending at now. Hourly periods
// cover the last 24 whole hours, others whole UTC days.
func (p Period) Range(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	if p.Granularity == Hourly {
		return now.Truncate(time.Hour).Add(-23 * time.Hour), now.Truncate(time.Hour).Add(time.Hour)
	}
	from := now.AddDate(0, 0, -p.Days).Truncate(24 * time.Hour)
	to := now.Add(24 * time.Hour).Truncate(24 * time.Hour)
	return from, to
}

// FillHours returns one bucket per hour starting at from, using zero for
// hours without views.
func FillHours(sparse []Bucket, from time.Time) []Bucket {
	views := make(map[string]int, len(sparse))
	for _, b := range sparse {
		views[b.Label] = b.Views
	}
	out := make([]Bucket, 24)
	for i := range out {
		label := fmt.Sprintf("%02d:00", from.Add(time.Duration(i)*time.Hour).Hour())
		out[i] = Bucket{Label: label, Views: views[label]}
	}
	return out
}

// Report is the dashboard payload for one period.
type Report struct {
	Period   string    `json:"period"`
	Days     int       `json:"period_days"`
	Realtime int       `json:"realtime_visitors"`
	Stats    *Stats    `json:"stats"`
	Bots     *BotStats `json:"bots"`
}

// Report aggregates human and bot traffic for the named period.
func (h *Handler) Report(c echo.Context, name string) (*Report, error) {
	ctx := c.Request().Context()
	p := ParsePeriod(name)
	from, to := p.Range(h.now())

	stats, err := h.store.Stats(ctx, from, to, p.Granularity)
	if err != nil {
		return nil, err
	}
	bots, err := h.store.BotStats(ctx, from, to, p.Granularity)
	if err != nil {
		return nil, err
	}
	if p.Granularity == Hourly {
		stats.Views = FillHours(stats.Views, from)
		bots.Visits = FillHours(bots.Visits, from)
	}
	realtime, err := h.store.Realtime(ctx)
	if err != nil {
		h.log.Warnw("realtime visitors", "err", err)
	}
	return &Report{Period: p.Name, Days: p.Days, Realtime: realtime, Stats: stats, Bots: bots}, nil
}

// StatsJSON serves the Report as JSON.
func (h *Handler) StatsJSON(c echo.Context) error {
	r, err := h.Report(c, c.QueryParam("period"))
	if err != nil {
		h.log.Errorw("analytics stats", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, r)
}

// RegisterRoutes mounts the public beacon on e and, when admin is not nil,
// the stats API on it.
func (h *Handler) RegisterRoutes(e *echo.Echo, admin *echo.Group) {
	e.POST("/api/analytics/collect", h.Collect)
	if admin != nil {
		admin.GET("/analytics/stats", h.StatsJSON)
	}
}
