package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/tasktide/internal/dto"
	apierrors "github.com/yukikurage/tasktide/internal/errors"
)

// TaskHandlerTestSuite drives the task and milestone calls through the router
type TaskHandlerTestSuite struct {
	suite.Suite
	env   testEnv
	alice string
	bob   string
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	suite.env = setupTestEnv(suite.T())
	suite.alice = suite.env.login(suite.T(), "alice")
	suite.bob = suite.env.login(suite.T(), "bob")
}

func (suite *TaskHandlerTestSuite) saveTask(token string, task map[string]any) string {
	w := suite.env.call(suite.T(), MethodSaveTask, token, map[string]any{"task": task})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return decode[dto.SavedResponse](suite.T(), w).ID
}

func (suite *TaskHandlerTestSuite) TestRequiresToken() {
	w := suite.env.call(suite.T(), MethodLoadTask, "", map[string]string{"taskId": "t1"})

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(apierrors.ErrCodeAuthenticationRequired, decode[errorBody](suite.T(), w).Code)
}

func (suite *TaskHandlerTestSuite) TestRejectsGarbageToken() {
	w := suite.env.call(suite.T(), MethodLoadTasksSummary, "not.a.token", nil)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(apierrors.ErrCodeAuthenticationRequired, decode[errorBody](suite.T(), w).Code)
}

func (suite *TaskHandlerTestSuite) TestSaveAndLoadTask() {
	id := suite.saveTask(suite.alice, map[string]any{
		"id":          "t1",
		"title":       "Write report",
		"from":        "Email",
		"status":      "Open",
		"priority":    2,
		"description": `<p>Draft</p><script>alert(1)</script>`,
		"notes":       "if a < b & c > d then ship",
		"categories":  []string{"work", "q3"},
	})
	suite.Equal("t1", id)

	w := suite.env.call(suite.T(), MethodLoadTask, suite.alice, map[string]string{"taskId": "t1"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	task := decode[map[string]any](suite.T(), w)
	suite.Equal("t1", task["id"])
	suite.Equal("alice", task["creator"])
	suite.Equal("Open", task["status"])
	suite.Equal("Email", task["from"])
	suite.Equal(float64(2), task["priority"])
	suite.Equal(`<p>Draft</p><script>alert(1)</script>`, task["description"])
	suite.Equal("<p>Draft</p>", task["descriptionHtml"])
	suite.Equal("if a < b & c > d then ship", task["notes"])
	suite.Equal("if a &lt; b &amp; c &gt; d then ship", task["notesHtml"])
	suite.Equal([]any{"work", "q3"}, task["categories"])
	suite.Equal([]any{}, task["attachments"])
}

func (suite *TaskHandlerTestSuite) TestSaveTask_AssignsID() {
	id := suite.saveTask(suite.alice, map[string]any{"title": "untitled"})
	suite.NotEmpty(id)

	w := suite.env.call(suite.T(), MethodLoadTask, suite.alice, map[string]string{"taskId": id})
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *TaskHandlerTestSuite) TestSaveTask_MissingTask() {
	w := suite.env.call(suite.T(), MethodSaveTask, suite.alice, nil)

	suite.Equal(http.StatusBadRequest, w.Code)
	body := decode[errorBody](suite.T(), w)
	suite.Equal(apierrors.ErrCodeValidationFailure, body.Code)
	suite.Equal("required", body.Details["task"])
}

func (suite *TaskHandlerTestSuite) TestSaveTask_OtherCreatorsIDDenied() {
	suite.saveTask(suite.alice, map[string]any{"id": "t1", "title": "mine"})

	w := suite.env.call(suite.T(), MethodSaveTask, suite.bob, map[string]any{
		"task": map[string]any{"id": "t1", "title": "hijacked"},
	})

	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(apierrors.ErrCodeAuthorizationDenied, decode[errorBody](suite.T(), w).Code)
}

func (suite *TaskHandlerTestSuite) TestLoadTask_NotFoundAndForeign() {
	suite.saveTask(suite.alice, map[string]any{"id": "t1", "title": "mine"})

	w := suite.env.call(suite.T(), MethodLoadTask, suite.alice, map[string]string{"taskId": "missing"})
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal(apierrors.ErrCodeNotFound, decode[errorBody](suite.T(), w).Code)

	w = suite.env.call(suite.T(), MethodLoadTask, suite.bob, map[string]string{"taskId": "t1"})
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestLoadTasksSummary() {
	suite.saveTask(suite.alice, map[string]any{"id": "a", "title": "alpha", "status": "Open", "updatedAt": "2024-01-01T00:00:00"})
	suite.saveTask(suite.alice, map[string]any{"id": "b", "title": "beta", "status": "Done", "updatedAt": "2024-02-01T00:00:00", "finishDate": "2024-02-01"})
	suite.saveTask(suite.bob, map[string]any{"id": "c", "title": "gamma", "status": "Open"})

	w := suite.env.call(suite.T(), MethodLoadTasksSummary, suite.alice, map[string]any{
		"filters":    map[string]any{},
		"pagination": map[string]int{"limit": 10, "offset": 0},
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	rows := decode[[]dto.TaskSummaryDTO](suite.T(), w)
	suite.Require().Len(rows, 2)
	suite.Equal("b", rows[0].ID)
	suite.Equal("a", rows[1].ID)

	w = suite.env.call(suite.T(), MethodLoadTasksSummary, suite.alice, map[string]any{
		"filters": map[string]any{"hasFinishDate": "false"},
	})
	rows = decode[[]dto.TaskSummaryDTO](suite.T(), w)
	suite.Require().Len(rows, 1)
	suite.Equal("a", rows[0].ID)
	suite.Equal("Open", *rows[0].Status)
}

func (suite *TaskHandlerTestSuite) TestLoadTasksSummary_EmptyIsList() {
	w := suite.env.call(suite.T(), MethodLoadTasksSummary, suite.alice, nil)

	suite.Require().Equal(http.StatusOK, w.Code)
	suite.JSONEq(`[]`, w.Body.String())
}

func (suite *TaskHandlerTestSuite) TestLoadTasksSummary_UnknownSortKey() {
	w := suite.env.call(suite.T(), MethodLoadTasksSummary, suite.alice, map[string]any{
		"filters": map[string]any{"sortBy": "creator; DROP TABLE tasks"},
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal(apierrors.ErrCodeValidationFailure, decode[errorBody](suite.T(), w).Code)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask() {
	suite.saveTask(suite.alice, map[string]any{"id": "t1", "title": "mine"})

	w := suite.env.call(suite.T(), MethodDeleteTask, suite.bob, map[string]string{"taskId": "t1"})
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.env.call(suite.T(), MethodDeleteTask, suite.alice, map[string]string{"taskId": "t1"})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("Task deleted successfully.", decode[dto.MessageResponse](suite.T(), w).Message)

	w = suite.env.call(suite.T(), MethodDeleteTask, suite.alice, map[string]string{"taskId": "t1"})
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestMilestones() {
	suite.saveTask(suite.alice, map[string]any{"id": "t1", "title": "mine"})

	save := func(milestone map[string]any) *dto.SavedResponse {
		w := suite.env.call(suite.T(), MethodSaveMilestone, suite.alice, map[string]any{
			"taskId":    "t1",
			"milestone": milestone,
		})
		suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		resp := decode[dto.SavedResponse](suite.T(), w)
		return &resp
	}

	save(map[string]any{"id": "m1", "title": "phase one", "status": "Open", "notes": map[string]any{"text": "kickoff"}})
	save(map[string]any{"id": "m2", "title": "phase two", "parentId": "m1"})

	w := suite.env.call(suite.T(), MethodLoadMilestonesForTask, suite.alice, map[string]string{"taskId": "t1"})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Len(decode[[]dto.MilestoneDTO](suite.T(), w), 2)

	w = suite.env.call(suite.T(), MethodLoadMilestone, suite.alice, map[string]string{"taskId": "t1", "milestoneId": "m1"})
	suite.Require().Equal(http.StatusOK, w.Code)
	m1 := decode[dto.MilestoneDTO](suite.T(), w)
	suite.Equal("Open", *m1.Status)
	suite.Equal(map[string]any{"text": "kickoff"}, m1.Notes)

	w = suite.env.call(suite.T(), MethodDeleteMilestone, suite.alice, map[string]string{"taskId": "t1", "milestoneId": "m1"})
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal(apierrors.ErrCodeConflict, decode[errorBody](suite.T(), w).Code)

	w = suite.env.call(suite.T(), MethodDeleteMilestone, suite.alice, map[string]string{"taskId": "t1", "milestoneId": "m2"})
	suite.Equal(http.StatusOK, w.Code)

	w = suite.env.call(suite.T(), MethodLoadMilestone, suite.alice, map[string]string{"taskId": "t1", "milestoneId": "m2"})
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestMilestones_ForeignTaskDenied() {
	suite.saveTask(suite.alice, map[string]any{"id": "t1", "title": "mine"})

	w := suite.env.call(suite.T(), MethodLoadMilestonesForTask, suite.bob, map[string]string{"taskId": "t1"})
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.env.call(suite.T(), MethodSaveMilestone, suite.bob, map[string]any{
		"taskId":    "t1",
		"milestone": map[string]any{"title": "sneaky"},
	})
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestMilestones_ParentFromAnotherOwner() {
	suite.saveTask(suite.alice, map[string]any{"id": "at", "title": "alice's"})
	suite.saveTask(suite.bob, map[string]any{"id": "bt", "title": "bob's"})

	w := suite.env.call(suite.T(), MethodSaveMilestone, suite.bob, map[string]any{
		"taskId":    "bt",
		"milestone": map[string]any{"id": "BM", "title": "bob's milestone"},
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.env.call(suite.T(), MethodSaveMilestone, suite.alice, map[string]any{
		"taskId":    "at",
		"milestone": map[string]any{"id": "AM", "parentId": "BM"},
	})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal(apierrors.ErrCodeValidationFailure, decode[errorBody](suite.T(), w).Code)

	// Bob's milestone stays unknown to alice's task.
	w = suite.env.call(suite.T(), MethodDeleteMilestone, suite.alice, map[string]string{"taskId": "at", "milestoneId": "BM"})
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.env.call(suite.T(), MethodDeleteMilestone, suite.bob, map[string]string{"taskId": "bt", "milestoneId": "BM"})
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *TaskHandlerTestSuite) TestDistinctCategoriesAndCounts() {
	suite.saveTask(suite.alice, map[string]any{"title": "a", "status": "Open", "categories": []string{"work", "home"}})
	suite.saveTask(suite.alice, map[string]any{"title": "b", "status": "Open", "categories": []string{"work"}})
	suite.saveTask(suite.alice, map[string]any{"title": "c", "status": "Done"})

	w := suite.env.call(suite.T(), MethodDistinctCategories, suite.alice, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal([]string{"home", "work"}, decode[[]string](suite.T(), w))

	w = suite.env.call(suite.T(), MethodTaskCounts, suite.alice, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(map[string]int64{"Open": 2, "Done": 1}, decode[map[string]int64](suite.T(), w))
}

func (suite *TaskHandlerTestSuite) TestTaskCounts_InvalidSince() {
	w := suite.env.call(suite.T(), MethodTaskCounts, suite.alice, map[string]any{"since": "last week"})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal(apierrors.ErrCodeValidationFailure, decode[errorBody](suite.T(), w).Code)
}

// TestTaskHandlerTestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
