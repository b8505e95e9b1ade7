package bootstrap

import (
	"database/sql"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	httpapi "github.com/4ndr33w/projecthub-backend/internal/api/http"
	"github.com/4ndr33w/projecthub-backend/internal/api/http/middleware"
	memrepo "github.com/4ndr33w/projecthub-backend/internal/memberships/repository"
	projectshttp "github.com/4ndr33w/projecthub-backend/internal/projects/http"
	projectsrepo "github.com/4ndr33w/projecthub-backend/internal/projects/repository"
	projectssvc "github.com/4ndr33w/projecthub-backend/internal/projects/service"
	"github.com/4ndr33w/projecthub-backend/internal/tasks"
	usershttp "github.com/4ndr33w/projecthub-backend/internal/users/http"
	usersrepo "github.com/4ndr33w/projecthub-backend/internal/users/repository"
	userssvc "github.com/4ndr33w/projecthub-backend/internal/users/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	DB          *sql.DB
	Pool        *tasks.Pool
	// Cache may be nil; aggregate reads then always hit the store.
	Cache projectssvc.AggregateCache
	// RateLimit of zero disables the limiter.
	RateLimit rate.Limit
	RateBurst int
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(middleware.RequestIDMiddleware())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	if dep.RateLimit > 0 {
		api.Use(middleware.RateLimitMiddleware(dep.RateLimit, dep.RateBurst))
	}

	userRepo := usersrepo.NewUserRepository(dep.DB)
	projectRepo := projectsrepo.NewProjectRepository(dep.DB)
	membershipRepo := memrepo.NewMembershipRepository(dep.DB)

	userSvc := userssvc.NewUserService(userRepo)
	projectSvc := projectssvc.NewProjectService(projectRepo, userRepo, dep.Cache)
	aggSvc := projectssvc.NewAggregationService(projectRepo, userRepo, membershipRepo, dep.Cache, dep.Pool)

	usersGroup := api.Group("/users")
	usershttp.Register(usersGroup, userSvc)
	projectshttp.RegisterUserSubroutes(usersGroup, aggSvc)

	projectsGroup := api.Group("/projects")
	projectshttp.Register(projectsGroup, projectSvc, aggSvc)

	return r
}
