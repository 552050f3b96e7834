package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rawen554/shortlinks/internal/config"
	"github.com/rawen554/shortlinks/internal/logic"
	"github.com/rawen554/shortlinks/internal/middleware/auth"
	"github.com/rawen554/shortlinks/internal/middleware/ratelimit"
	"github.com/rawen554/shortlinks/internal/models"
	"github.com/rawen554/shortlinks/internal/resolver"
	"github.com/rawen554/shortlinks/internal/session"
	"go.uber.org/zap"
)

type Option func(*App)

func WithResolver(r *resolver.Resolver) Option {
	return func(a *App) {
		a.resolver = r
	}
}

// WithRateLimiter throttles the link creation endpoints.
func WithRateLimiter(l *ratelimit.RateLimiter) Option {
	return func(a *App) {
		a.limiter = l
	}
}

type App struct {
	config   *config.ServerConfig
	logic    *logic.CoreLogic
	sessions *session.Service
	resolver *resolver.Resolver
	limiter  *ratelimit.RateLimiter
	logger   *zap.SugaredLogger
}

func NewApp(
	config *config.ServerConfig,
	coreLogic *logic.CoreLogic,
	sessions *session.Service,
	logger *zap.SugaredLogger,
	opts ...Option,
) *App {
	a := &App{
		config:   config,
		logic:    coreLogic,
		sessions: sessions,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.resolver == nil {
		a.resolver = resolver.New(coreLogic, nil, logger.Named("resolver"))
	}
	return a
}

func (a *App) shortenedURL(link *models.Link) (*models.ShortenedURL, error) {
	shortURL, err := a.logic.ShortURL(link.ShortCode)
	if err != nil {
		return nil, err
	}
	return &models.ShortenedURL{
		ID:        link.ID,
		ShortCode: link.ShortCode,
		LongURL:   link.DestinationURL,
		ShortURL:  shortURL,
		Clicks:    link.ClickCount,
		CreatedAt: link.CreatedAt,
	}, nil
}

func (a *App) owner(c *gin.Context) (models.Owner, bool) {
	owner, ok := auth.GetOwner(c)
	if !ok {
		a.logger.Error("owner missing from request context")
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
	return owner, ok
}

func (a *App) RedirectToOriginal(c *gin.Context) {
	destination, err := a.resolver.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, logic.ErrNotFound) && a.config.FrontendURL != "" {
			c.Redirect(http.StatusTemporaryRedirect, a.config.FrontendURL)
			return
		}
		a.abortWithError(c, err)
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, destination)
}

func (a *App) ShortenURL(c *gin.Context) {
	var req models.ShortenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "request body must be JSON with a url field")
		return
	}
	owner, ok := a.owner(c)
	if !ok {
		return
	}

	link, err := a.logic.CreateLink(c.Request.Context(), req.URL, owner)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	a.respondLink(c, http.StatusCreated, link)
}

func (a *App) ShortenWithAlias(c *gin.Context) {
	var req models.AliasReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "request body must be JSON with url and customizedEndpoint fields")
		return
	}
	owner, ok := a.owner(c)
	if !ok {
		return
	}

	link, err := a.logic.CreateLinkWithAlias(c.Request.Context(), req.URL, req.Alias(), owner)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	a.respondLink(c, http.StatusCreated, link)
}

func (a *App) respondLink(c *gin.Context, status int, link *models.Link) {
	res, err := a.shortenedURL(link)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	respond(c, status, res)
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (a *App) GetHistory(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		respondError(c, http.StatusBadRequest, "page must be an integer")
		return
	}
	pageSize, err := queryInt(c, "pageSize")
	if err != nil {
		respondError(c, http.StatusBadRequest, "pageSize must be an integer")
		return
	}
	owner, ok := a.owner(c)
	if !ok {
		return
	}

	linkPage, err := a.logic.ListLinks(c.Request.Context(), owner, page, pageSize)
	if err != nil {
		a.abortWithError(c, err)
		return
	}

	urls := make([]models.ShortenedURL, 0, len(linkPage.Links))
	for i := range linkPage.Links {
		u, err := a.shortenedURL(&linkPage.Links[i])
		if err != nil {
			a.abortWithError(c, err)
			return
		}
		urls = append(urls, *u)
	}
	respond(c, http.StatusOK, models.HistoryRes{URLs: urls, TotalPages: linkPage.TotalPages})
}

func (a *App) GetURL(c *gin.Context) {
	owner, ok := a.owner(c)
	if !ok {
		return
	}

	link, err := a.logic.GetOwnedLink(c.Request.Context(), c.Param("name"), owner)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	a.respondLink(c, http.StatusOK, link)
}

func (a *App) DeleteURL(c *gin.Context) {
	owner, ok := a.owner(c)
	if !ok {
		return
	}

	if err := a.logic.DeleteLink(c.Request.Context(), c.Param("id"), owner); err != nil {
		a.abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

func (a *App) Ping(c *gin.Context) {
	if err := a.logic.Ping(c.Request.Context()); err != nil {
		respondError(c, http.StatusInternalServerError, "storage unavailable")
		return
	}
	respond(c, http.StatusOK, "pong")
}

func (a *App) GetStats(c *gin.Context) {
	stats, err := a.logic.GetStats(c.Request.Context())
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
