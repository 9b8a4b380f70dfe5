package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"social-graph/internal/apperror"
	"social-graph/internal/service"
)

const maxImageBytes = 5 << 20

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Deps lists what the HTTP layer is built from. Images and Registry are
// optional; nil disables profile image routes and /metrics respectively.
type Deps struct {
	Auth         service.AuthService
	Users        service.UserService
	Graph        service.GraphService
	Posts        service.PostService
	Images       service.ProfileImageService
	Tokens       TokenVerifier
	Logger       *logrus.Logger
	StoreTimeout time.Duration
	AllowOrigins []string
	Registry     *prometheus.Registry
	// Health reports store reachability for /health.
	Health func(ctx context.Context) error
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth         service.AuthService
	users        service.UserService
	graph        service.GraphService
	posts        service.PostService
	images       service.ProfileImageService
	tokens       TokenVerifier
	logger       *logrus.Logger
	storeTimeout time.Duration
	allowOrigins []string
	registry     *prometheus.Registry
	metrics      *Metrics
	health       func(ctx context.Context) error
}

func NewHandler(deps Deps) *Handler {
	h := &Handler{
		auth:         deps.Auth,
		users:        deps.Users,
		graph:        deps.Graph,
		posts:        deps.Posts,
		images:       deps.Images,
		tokens:       deps.Tokens,
		logger:       deps.Logger,
		storeTimeout: deps.StoreTimeout,
		allowOrigins: deps.AllowOrigins,
		registry:     deps.Registry,
		health:       deps.Health,
	}
	if h.logger == nil {
		h.logger = logrus.New()
	}
	if h.storeTimeout <= 0 {
		h.storeTimeout = 5 * time.Second
	}
	if h.registry != nil {
		h.metrics = NewMetrics(h.registry)
	}
	return h
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestID())
	router.Use(recovery(h.logger))
	router.Use(requestLogger(h.logger))
	if h.metrics != nil {
		router.Use(h.metrics.middleware())
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})))
	}
	router.Use(h.corsMiddleware())

	api := router.Group("/api/v1")
	api.GET("/health", h.healthCheck)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
	}

	api.GET("/user/find/get-all-users", h.getAllUsers)

	user := api.Group("/user", h.requireAuth())
	{
		user.GET("/find/non-followed", h.nonFollowed)
		user.GET("/find/friends", h.friends)
		user.GET("/get-user/:userId", h.getUser)
		user.PUT("/update-user/:userId", h.updateUser)
		user.DELETE("/delete-user/:userId", h.deleteUser)
		user.PUT("/toggle-follow/:otherUserId", h.toggleFollow)
		user.PUT("/bookmark/:postId", h.toggleBookmark)
		if h.images != nil {
			user.PUT("/profile-image", h.uploadProfileImage)
			user.GET("/profile-image/:userId", h.profileImage)
		}
	}

	post := api.Group("/post", h.requireAuth())
	{
		post.POST("/create", h.createPost)
		post.GET("/:postId", h.getPost)
	}
}

func (h *Handler) corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	cfg.ExposeHeaders = []string{"X-Request-ID"}

	cfg.AllowAllOrigins = len(h.allowOrigins) == 0
	for _, origin := range h.allowOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = h.allowOrigins
	}
	return cors.New(cfg)
}

// storeContext bounds the store calls made for one request.
func (h *Handler) storeContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.storeTimeout)
}

func (h *Handler) healthCheck(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := h.storeContext(c)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.fail(c, apperror.StoreUnavailable(err))
			return
		}
	}
	success(c, http.StatusOK, "", gin.H{"status": "ok"})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.Wrap(err, apperror.CodeBadRequest, "Invalid request body."))
		return
	}

	ctx, cancel := h.storeContext(c)
	defer cancel()
	res, err := h.auth.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	success(c, http.StatusCreated, "User created successfully", gin.H{
		"user":  userToResponse(res.User),
		"token": res.Token,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.Wrap(err, apperror.CodeBadRequest, "Invalid request body."))
		return
	}

	ctx, cancel := h.storeContext(c)
	defer cancel()
	res, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	success(c, http.StatusOK, "Login successful.", gin.H{
		"user":  userToResponse(res.User),
		"token": res.Token,
	})
}

func (h *Handler) nonFollowed(c *gin.Context) {
	ctx, cancel := h.storeContext(c)
	defer cancel()
	users, err := h.graph.NonFollowed(ctx, callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, http.StatusOK, "Non-followed users fetched successfully", gin.H{
		"count": len(users),
		"data":  usersToResponse(users),
	})
}

func (h *Handler) friends(c *gin.Context) {
	ctx, cancel := h.storeContext(c)
	defer cancel()
	friends, err := h.graph.Friends(ctx, callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, http.StatusOK, "Friends fetched successfully", gin.H{
		"count":   len(friends),
		"friends": usersToResponse(friends),
	})
}

func (h *Handler) getUser(c *gin.Context) {
	ctx, cancel := h.storeContext(c)
	defer cancel()
	user, err := h.users.GetByID(ctx, c.Param("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, http.StatusOK, "User fetched successfully", gin.H{"user": userToResponse(user)})
}

func (h *Handler) getAllUsers(c *gin.Context) {
	ctx, cancel := h.storeContext(c)
	defer cancel()
	summaries, err := h.users.ListSummaries(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]UserSummaryResponse, len(summaries))
	for i := range summaries {
		resp[i] = summaryToResponse(summaries[i])
	}
	success(c, http.StatusOK, "Users fetched successfully", gin.H{
		"count": len(resp),
		"users": resp,
	})
}

// updateUserRequest is the allow-list of mutable fields. Anything else in
// the body is ignored.
type updateUserRequest struct {
	Username     *string `json:"username"`
	Email        *string `json:"email"`
	Bio          *string `json:"bio"`
	ProfileImage *string `json:"profileImg"`
	Password     *string `json:"password"`
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.Wrap(err, apperror.CodeBadRequest, "Invalid request body."))
		return
	}

	ctx, cancel := h.storeContext(c)
	defer cancel()
	user, err := h.users.Update(ctx, callerID(c), c.Param("userId"), service.ProfilePatch{
		Username:     req.Username,
		Email:        req.Email,
		Bio:          req.Bio,
		ProfileImage: req.ProfileImage,
		Password:     req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, http.StatusOK, "User updated successfully", gin.H{"user": userToResponse(user)})
}

func (h *Handler) deleteUser(c *gin.Context) {
	targetID := c.Param("userId")

	ctx, cancel := h.storeContext(c)
	defer cancel()
	if err := h.users.Delete(ctx, callerID(c), targetID); err != nil {
		h.fail(c, err)
		return
	}

	resp := gin.H{"data": gin.H{}}
	if h.images != nil {
		remoteCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		if err := h.images.Purge(remoteCtx, targetID); err != nil {
			h.logger.WithField("user_id", targetID).WithError(err).Warn("purge profile images")
			resp["warnings"] = []string{fmt.Sprintf("delete profile images: %v", err)}
		}
	}
	success(c, http.StatusOK, "Successfully deleted user.", resp)
}

func (h *Handler) toggleFollow(c *gin.Context) {
	ctx, cancel := h.storeContext(c)
	defer cancel()
	res, err := h.graph.ToggleFollow(ctx, callerID(c), c.Param("otherUserId"))
	if err != nil {
		h.fail(c, err)
		return
	}

	var message string
	if res.Following {
		message = fmt.Sprintf("You have successfully followed %s. They now have %d follower(s).", res.Target.Username, res.FollowerCount)
	} else {
		message = fmt.Sprintf("You have successfully unfollowed %s. They now have %d follower(s).", res.Target.Username, res.FollowerCount)
	}
	success(c, http.StatusOK, message, gin.H{
		"following": res.Following,
		"followers": res.FollowerCount,
	})
}

func (h *Handler) toggleBookmark(c *gin.Context) {
	postID := c.Param("postId")

	ctx, cancel := h.storeContext(c)
	defer cancel()
	res, err := h.graph.ToggleBookmark(ctx, callerID(c), postID)
	if err != nil {
		h.fail(c, err)
		return
	}

	verb := "unbookmarked"
	if res.Bookmarked {
		verb = "bookmarked"
	}
	success(c, http.StatusOK, fmt.Sprintf("Successfully %s post %s.", verb, postID), gin.H{
		"bookmarked": res.Bookmarked,
		"data":       fmt.Sprintf("Post %s %s by user %s.", postID, verb, res.User.Username),
	})
}

func (h *Handler) uploadProfileImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		h.fail(c, apperror.Validation("Profile image file is required."))
		return
	}
	if file.Size > maxImageBytes {
		h.fail(c, apperror.Validation("Profile image must be at most 5 MB."))
		return
	}
	body, err := file.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer body.Close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	user, err := h.images.Upload(ctx, callerID(c), body, file.Header.Get("Content-Type"))
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, http.StatusOK, "Profile image updated successfully", gin.H{"user": userToResponse(user)})
}

func (h *Handler) profileImage(c *gin.Context) {
	ctx, cancel := h.storeContext(c)
	defer cancel()
	url, err := h.images.URL(ctx, c.Param("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

type createPostRequest struct {
	Description string `json:"description"`
	Image       string `json:"image"`
}

func (h *Handler) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.Wrap(err, apperror.CodeBadRequest, "Invalid request body."))
		return
	}

	ctx, cancel := h.storeContext(c)
	defer cancel()
	post, err := h.posts.Create(ctx, callerID(c), req.Description, req.Image)
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, http.StatusCreated, "Post created successfully", gin.H{"post": postToResponse(post)})
}

func (h *Handler) getPost(c *gin.Context) {
	ctx, cancel := h.storeContext(c)
	defer cancel()
	post, err := h.posts.Get(ctx, c.Param("postId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, http.StatusOK, "Post fetched successfully", gin.H{"post": postToResponse(post)})
}
