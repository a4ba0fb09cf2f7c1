package handlers

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/tasktide/internal/errors"
	"github.com/yukikurage/tasktide/internal/metrics"
	"github.com/yukikurage/tasktide/internal/middleware"
	"github.com/yukikurage/tasktide/internal/services"
)

// Method names the shell calls. Each is routed as POST /<method>.
const (
	MethodLogin                 = "login"
	MethodLoadTask              = "load_task"
	MethodLoadTasksSummary      = "load_tasks_summary"
	MethodSaveTask              = "save_task"
	MethodDeleteTask            = "delete_task"
	MethodLoadMilestonesForTask = "load_milestones_for_task"
	MethodLoadMilestone         = "load_milestone"
	MethodSaveMilestone         = "save_milestone"
	MethodDeleteMilestone       = "delete_milestone"
	MethodDistinctStatuses      = "get_distinct_statuses"
	MethodDistinctFromValues    = "get_distinct_from_values"
	MethodDistinctCategories    = "get_distinct_categories"
	MethodTaskCounts            = "get_task_counts"
	MethodDeleteStatusValues    = "delete_status_values"
	MethodDeleteFromValues      = "delete_from_values"
)

// Dependencies are what the router dispatches to.
type Dependencies struct {
	AuthService   *services.AuthService
	TaskService   *services.TaskService
	LookupService *services.LookupService

	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// NewRouter builds the engine serving every operation. login is public;
// everything else runs behind RequireAuth.
func NewRouter(deps Dependencies) *gin.Engine {
	useJSONFieldNames()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	authHandler := NewAuthHandler(deps.AuthService)
	taskHandler := NewTaskHandler(deps.TaskService)
	lookupHandler := NewLookupHandler(deps.LookupService)

	r := gin.New()
	r.Use(middleware.RequestLogger(logger, rec), middleware.Recovery(logger))
	r.NoRoute(func(c *gin.Context) {
		apierrors.Respond(c, apierrors.UnknownMethod(strings.TrimPrefix(c.Request.URL.Path, "/")))
	})

	r.POST("/"+MethodLogin, authHandler.Login)

	api := r.Group("/", middleware.RequireAuth(deps.AuthService))
	{
		api.POST(MethodLoadTask, taskHandler.LoadTask)
		api.POST(MethodLoadTasksSummary, taskHandler.LoadTasksSummary)
		api.POST(MethodSaveTask, taskHandler.SaveTask)
		api.POST(MethodDeleteTask, taskHandler.DeleteTask)
		api.POST(MethodLoadMilestonesForTask, taskHandler.LoadMilestones)
		api.POST(MethodLoadMilestone, taskHandler.LoadMilestone)
		api.POST(MethodSaveMilestone, taskHandler.SaveMilestone)
		api.POST(MethodDeleteMilestone, taskHandler.DeleteMilestone)
		api.POST(MethodDistinctCategories, taskHandler.DistinctCategories)
		api.POST(MethodTaskCounts, taskHandler.TaskCounts)

		api.POST(MethodDistinctStatuses, lookupHandler.DistinctStatuses)
		api.POST(MethodDistinctFromValues, lookupHandler.DistinctOrigins)
		api.POST(MethodDeleteStatusValues, lookupHandler.DeleteStatus)
		api.POST(MethodDeleteFromValues, lookupHandler.DeleteOrigin)
	}

	return r
}
