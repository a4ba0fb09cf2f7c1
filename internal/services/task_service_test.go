package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/tasktide/internal/database"
	"github.com/yukikurage/tasktide/internal/models"
	"github.com/yukikurage/tasktide/internal/repository"
	"github.com/yukikurage/tasktide/internal/security"
	"github.com/yukikurage/tasktide/internal/utils"
)

type TaskServiceTestSuite struct {
	suite.Suite
	service *TaskService
	lookups *LookupService
}

func (suite *TaskServiceTestSuite) SetupTest() {
	db := newTestDB(suite.T(), database.SchemaTasks)
	suite.service = NewTaskService(
		repository.NewTaskRepository(db),
		repository.NewMilestoneRepository(db),
		security.NewSanitizer(),
	)
	suite.service.now = func() time.Time {
		return time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	}
	suite.lookups = NewLookupService(repository.NewLookupRepository(db))
}

func (suite *TaskServiceTestSuite) save(creator string, input TaskInput) string {
	id, err := suite.service.SaveTask(creator, input)
	suite.Require().NoError(err)
	return id
}

func (suite *TaskServiceTestSuite) TestSaveAndLoad_CategoriesRoundTrip() {
	suite.save("alice", TaskInput{
		ID:          "t1",
		Title:       str("Write report"),
		Status:      "Open",
		From:        "Email",
		Categories:  []string{"work", "urgent"},
		Attachments: []any{map[string]any{"name": "a.pdf"}},
	})

	task, err := suite.service.LoadTask("alice", "t1")
	suite.Require().NoError(err)
	suite.Equal([]string{"work", "urgent"}, models.ParseCategories(task.Categories))
	suite.Equal("Open", *task.StatusLabel)
	suite.Equal("Email", *task.OriginLabel)
	suite.JSONEq(`[{"name":"a.pdf"}]`, *task.Attachments)
}

func (suite *TaskServiceTestSuite) TestSave_AssignsIDAndDefaults() {
	id := suite.save("alice", TaskInput{Title: str("untitled")})
	suite.NotEmpty(id)

	task, err := suite.service.LoadTask("alice", id)
	suite.Require().NoError(err)
	suite.Equal("[]", *task.Categories)
	suite.Equal("[]", *task.Attachments)
	suite.Nil(task.StatusID)
}

func (suite *TaskServiceTestSuite) TestSave_StoresTextVerbatim() {
	suite.save("alice", TaskInput{
		ID:          "t1",
		Description: str("if a < b & c > d then ship"),
		Notes:       str(`Tom's "quote"`),
	})

	task, err := suite.service.LoadTask("alice", "t1")
	suite.Require().NoError(err)
	suite.Equal("if a < b & c > d then ship", *task.Description)
	suite.Equal(`Tom's "quote"`, *task.Notes)

	summaries, err := suite.service.ListTaskSummaries("alice", repository.TaskFilter{Query: "a < b"}, utils.Pagination{})
	suite.Require().NoError(err)
	suite.Require().Len(summaries, 1)
	suite.Equal("t1", summaries[0].ID)

	summaries, err = suite.service.ListTaskSummaries("alice", repository.TaskFilter{Query: "tom's"}, utils.Pagination{})
	suite.Require().NoError(err)
	suite.Len(summaries, 1)
}

func (suite *TaskServiceTestSuite) TestRenderHTML() {
	suite.save("alice", TaskInput{
		ID:          "t1",
		Description: str(`<p>ok</p><script>alert(1)</script>`),
	})

	task, err := suite.service.LoadTask("alice", "t1")
	suite.Require().NoError(err)
	suite.Equal(`<p>ok</p><script>alert(1)</script>`, *task.Description)
	suite.Equal("<p>ok</p>", *suite.service.RenderHTML(task.Description))
	suite.Nil(suite.service.RenderHTML(nil))
}

func (suite *TaskServiceTestSuite) TestOwnership() {
	suite.save("alice", TaskInput{ID: "t1"})

	_, err := suite.service.LoadTask("bob", "t1")
	suite.ErrorIs(err, ErrTaskAccessDenied)

	_, err = suite.service.SaveTask("bob", TaskInput{ID: "t1", Title: str("mine now")})
	suite.ErrorIs(err, ErrTaskAccessDenied)

	suite.ErrorIs(suite.service.DeleteTask("bob", "t1"), ErrTaskAccessDenied)

	_, err = suite.service.ListMilestones("bob", "t1")
	suite.ErrorIs(err, ErrTaskAccessDenied)

	_, err = suite.service.LoadTask("alice", "missing")
	suite.ErrorIs(err, ErrTaskNotFound)
	suite.ErrorIs(suite.service.DeleteTask("alice", "missing"), ErrTaskNotFound)
}

func (suite *TaskServiceTestSuite) TestListTaskSummaries_Pagination() {
	suite.save("alice", TaskInput{ID: "a", UpdatedAt: str("2024-01-01T10:00:00")})
	suite.save("alice", TaskInput{ID: "b", UpdatedAt: str("2024-01-03T10:00:00")})
	suite.save("alice", TaskInput{ID: "c", UpdatedAt: str("2024-01-02T10:00:00")})

	summaries, err := suite.service.ListTaskSummaries("alice", repository.TaskFilter{}, utils.Pagination{Limit: 1, Offset: 1})
	suite.Require().NoError(err)
	suite.Require().Len(summaries, 1)
	suite.Equal("c", summaries[0].ID)
}

func (suite *TaskServiceTestSuite) TestListTaskSummaries_HasFinishDateFalse() {
	suite.save("alice", TaskInput{ID: "A"})
	suite.save("alice", TaskInput{ID: "B", FinishDate: str("2024-01-01")})

	f := false
	summaries, err := suite.service.ListTaskSummaries("alice", repository.TaskFilter{HasFinishDate: &f}, utils.Pagination{})
	suite.Require().NoError(err)
	suite.Require().Len(summaries, 1)
	suite.Equal("A", summaries[0].ID)
}

func (suite *TaskServiceTestSuite) TestListTaskSummaries_UnknownKey() {
	_, err := suite.service.ListTaskSummaries("alice", repository.TaskFilter{GroupBy: "owner"}, utils.Pagination{})
	suite.ErrorIs(err, ErrInvalidFilter)
}

func (suite *TaskServiceTestSuite) TestMilestones() {
	suite.save("alice", TaskInput{ID: "t1"})

	id, err := suite.service.SaveMilestone("alice", "t1", MilestoneInput{
		ID:     "M",
		Title:  str("parent"),
		Status: "Open",
		Notes:  []any{"first", map[string]any{"done": true}},
	})
	suite.Require().NoError(err)
	suite.Equal("M", id)

	childID, err := suite.service.SaveMilestone("alice", "t1", MilestoneInput{ParentID: str("M")})
	suite.Require().NoError(err)
	suite.NotEmpty(childID)

	m, err := suite.service.LoadMilestone("alice", "t1", "M")
	suite.Require().NoError(err)
	suite.JSONEq(`["first",{"done":true}]`, *m.Notes)
	suite.Equal("Open", *m.StatusLabel)

	child, err := suite.service.LoadMilestone("alice", "t1", childID)
	suite.Require().NoError(err)
	suite.Equal(`""`, *child.Notes)

	list, err := suite.service.ListMilestones("alice", "t1")
	suite.Require().NoError(err)
	suite.Len(list, 2)

	suite.ErrorIs(suite.service.DeleteMilestone("alice", "t1", "M"), ErrMilestoneHasChildren)
	_, err = suite.service.LoadMilestone("alice", "t1", "M")
	suite.NoError(err)

	suite.Require().NoError(suite.service.DeleteMilestone("alice", "t1", childID))
	suite.Require().NoError(suite.service.DeleteMilestone("alice", "t1", "M"))
	suite.ErrorIs(suite.service.DeleteMilestone("alice", "t1", "M"), ErrMilestoneNotFound)

	_, err = suite.service.LoadMilestone("alice", "t1", "M")
	suite.ErrorIs(err, ErrMilestoneNotFound)
}

func (suite *TaskServiceTestSuite) TestSaveMilestone_Rejections() {
	suite.save("alice", TaskInput{ID: "t1"})
	suite.save("alice", TaskInput{ID: "t2"})
	suite.save("bob", TaskInput{ID: "b1"})

	_, err := suite.service.SaveMilestone("alice", "b1", MilestoneInput{ID: "m"})
	suite.ErrorIs(err, ErrTaskAccessDenied)

	_, err = suite.service.SaveMilestone("alice", "t1", MilestoneInput{ID: "m", ParentID: str("m")})
	suite.ErrorIs(err, ErrInvalidMilestone)

	_, err = suite.service.SaveMilestone("alice", "t1", MilestoneInput{ID: "m"})
	suite.Require().NoError(err)
	_, err = suite.service.SaveMilestone("alice", "t2", MilestoneInput{ID: "m"})
	suite.ErrorIs(err, ErrMilestoneAccessDenied)
}

func (suite *TaskServiceTestSuite) TestDeleteTask_CascadesMilestones() {
	suite.save("alice", TaskInput{ID: "t1"})
	_, err := suite.service.SaveMilestone("alice", "t1", MilestoneInput{ID: "m1"})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.DeleteTask("alice", "t1"))

	suite.save("alice", TaskInput{ID: "t1"})
	list, err := suite.service.ListMilestones("alice", "t1")
	suite.Require().NoError(err)
	suite.Empty(list)
}

func (suite *TaskServiceTestSuite) TestDistinctCategories() {
	suite.save("alice", TaskInput{ID: "t1", Categories: []string{"work", "urgent"}})
	suite.save("alice", TaskInput{ID: "t2", Categories: []string{"home", "work"}})
	suite.save("bob", TaskInput{ID: "t3", Categories: []string{"secret"}})

	categories, err := suite.service.DistinctCategories("alice")
	suite.Require().NoError(err)
	suite.Equal([]string{"home", "urgent", "work"}, categories)

	none, err := suite.service.DistinctCategories("carol")
	suite.Require().NoError(err)
	suite.Empty(none)
}

func (suite *TaskServiceTestSuite) TestTaskCounts() {
	suite.save("alice", TaskInput{ID: "t1", Status: "Open", UpdatedAt: str("2024-06-29T09:00:00")})
	suite.save("alice", TaskInput{ID: "t2", Status: "Open", UpdatedAt: str("2024-01-01T09:00:00")})
	suite.save("alice", TaskInput{ID: "t3", Status: "Done", UpdatedAt: str("2024-06-25T09:00:00")})

	all, err := suite.service.TaskCounts("alice", nil)
	suite.Require().NoError(err)
	suite.Equal(map[string]int64{"Open": 2, "Done": 1}, all)

	week := 7
	recent, err := suite.service.TaskCounts("alice", &week)
	suite.Require().NoError(err)
	suite.Equal(map[string]int64{"Open": 1, "Done": 1}, recent)

	negative := -1
	_, err = suite.service.TaskCounts("alice", &negative)
	suite.ErrorIs(err, ErrInvalidSince)
}

func (suite *TaskServiceTestSuite) TestLookups() {
	suite.save("alice", TaskInput{ID: "t1", Status: "Open", From: "Email"})
	suite.save("bob", TaskInput{ID: "t2", Status: "Blocked", From: "Phone"})

	all, err := suite.lookups.Distinct(repository.LookupStatus, "alice", false)
	suite.Require().NoError(err)
	suite.Equal([]string{"Blocked", "Open"}, all)

	active, err := suite.lookups.Distinct(repository.LookupOrigin, "alice", true)
	suite.Require().NoError(err)
	suite.Equal([]string{"Email"}, active)

	suite.ErrorIs(suite.lookups.Delete(repository.LookupStatus, "Open"), ErrLabelInUse)
	suite.ErrorIs(suite.lookups.Delete(repository.LookupStatus, "Nope"), ErrLabelNotFound)

	suite.Require().NoError(suite.service.DeleteTask("alice", "t1"))
	suite.Require().NoError(suite.lookups.Delete(repository.LookupStatus, "Open"))

	removed, err := suite.lookups.PruneUnused()
	suite.Require().NoError(err)
	suite.Equal(int64(1), removed)

	origins, err := suite.lookups.Distinct(repository.LookupOrigin, "alice", false)
	suite.Require().NoError(err)
	suite.Equal([]string{"Phone"}, origins)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
