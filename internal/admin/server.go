// Package admin serves the per-post autoshare settings endpoint and provides
// the client-side panel that drives it.
package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/mikequentel/autoshare/internal/compose"
	"github.com/mikequentel/autoshare/internal/model"
	"github.com/mikequentel/autoshare/internal/publish"
	"github.com/mikequentel/autoshare/internal/store"
	"github.com/mikequentel/autoshare/internal/xapi"
)

const apiPrefix = "/autoshare/v1"

type SettingsStore interface {
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	SaveSettings(ctx context.Context, postID int64, st model.Settings) error
}

type Publisher interface {
	Publish(ctx context.Context, postID int64) (*model.Status, error)
	Settings(ctx context.Context, postID int64) (model.Settings, error)
	StatusView(ctx context.Context, postID int64) (*publish.StatusView, error)
	SupportsType(postType string) bool
}

type Server struct {
	echo     *echo.Echo
	store    SettingsStore
	pub      Publisher
	validate *validator.Validate
	log      zerolog.Logger
}

// settingsRequest is what the panel posts. Enabled is required so a missing
// field is never read as "off".
type settingsRequest struct {
	Enabled    *bool  `json:"enabled" validate:"required"`
	TweetBody  string `json:"tweetBody" validate:"max=10000"`
	AllowImage bool   `json:"allowImage"`
}

type settingsResponse struct {
	Enabled    bool `json:"enabled"`
	AllowImage bool `json:"allowImage"`
}

type postResponse struct {
	PostID    int64               `json:"postId"`
	Supported bool                `json:"supported"`
	Settings  model.Settings      `json:"settings"`
	Status    *publish.StatusView `json:"status"`
}

func NewServer(st SettingsStore, pub Publisher, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		store:    st,
		pub:      pub,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log.With().Str("component", "admin").Logger(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := s.log.Info()
			if v.Error != nil {
				ev = s.log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Msg("Request")
			return nil
		},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)

	g := s.echo.Group(apiPrefix)
	g.GET("/posts/:id", s.getPost)
	g.POST("/posts/:id", s.updateSettings)
	g.POST("/posts/:id/publish", s.publish)
}

func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("Admin API listening")
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getPost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := s.post(c)
	if err != nil {
		return s.fail(c, err)
	}
	st, err := s.pub.Settings(ctx, post.ID)
	if err != nil {
		return s.fail(c, err)
	}
	view, err := s.pub.StatusView(ctx, post.ID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, postResponse{
		PostID:    post.ID,
		Supported: s.pub.SupportsType(post.PostType),
		Settings:  st,
		Status:    view,
	})
}

func (s *Server) updateSettings(c echo.Context) error {
	post, err := s.post(c)
	if err != nil {
		return s.fail(c, err)
	}

	var req settingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := s.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	st := model.Settings{
		Enabled:    *req.Enabled,
		TweetBody:  compose.Sanitize(req.TweetBody),
		AllowImage: req.AllowImage,
	}
	if err := s.store.SaveSettings(c.Request().Context(), post.ID, st); err != nil {
		return s.fail(c, err)
	}
	s.log.Info().Int64("post_id", post.ID).Bool("enabled", st.Enabled).Bool("allow_image", st.AllowImage).Msg("Settings saved")

	return c.JSON(http.StatusOK, settingsResponse{Enabled: st.Enabled, AllowImage: st.AllowImage})
}

func (s *Server) publish(c echo.Context) error {
	post, err := s.post(c)
	if err != nil {
		return s.fail(c, err)
	}
	st, err := s.pub.Publish(c.Request().Context(), post.ID)
	if err != nil {
		return s.fail(c, err)
	}
	if st == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) post(c echo.Context) (*model.Post, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return nil, errBadID
	}
	return s.store.GetPost(c.Request().Context(), id)
}

var errBadID = errors.New("invalid post id")

func (s *Server) fail(c echo.Context, err error) error {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("Request failed")
	}
	return c.JSON(code, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var apiErr *xapi.APIError
	switch {
	case errors.Is(err, errBadID):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, publish.ErrAlreadyPublished):
		return http.StatusConflict
	case errors.Is(err, publish.ErrNotEligible),
		errors.Is(err, publish.ErrNotPublished),
		errors.Is(err, compose.ErrURLTooLong):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
