// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the task-lifecycle engine as typed tools for AI coding assistants.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/taskdeck/taskdeck/internal/core"
	"github.com/taskdeck/taskdeck/pkg/models"
)

// Server wraps the lifecycle controller and exposes it as MCP tools.
type Server struct {
	server *gomcp.Server
	ctl    core.Controller
}

// NewServer creates an MCP server over the given controller.
func NewServer(ctl core.Controller, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{ctl: ctl}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "taskdeck", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type subtaskPayload struct {
	Text string `json:"text"`
	Done bool   `json:"done,omitempty"`
}

type recordOutput struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Project     string           `json:"project"`
	Priority    string           `json:"priority"`
	Status      string           `json:"status"`
	Owner       string           `json:"owner,omitempty"`
	DependsOn   []string         `json:"depends_on,omitempty"`
	BlockedBy   []string         `json:"blocked_by,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Estimate    string           `json:"estimate,omitempty"`
	Due         string           `json:"due,omitempty"`
	Created     string           `json:"created"`
	Updated     string           `json:"updated"`
	Completed   string           `json:"completed,omitempty"`
	Archived    string           `json:"archived,omitempty"`
	Subtasks    []subtaskPayload `json:"subtasks,omitempty"`
	Description string           `json:"description,omitempty"`
	Notes       string           `json:"notes,omitempty"`
}

type createTaskInput struct {
	Title     string   `json:"title" jsonschema:"required,short task title"`
	Project   string   `json:"project,omitempty" jsonschema:"uppercase project prefix (e.g. AUTH); defaults to the configured project"`
	Priority  string   `json:"priority,omitempty" jsonschema:"P0, P1, P2, or P3"`
	Status    string   `json:"status,omitempty" jsonschema:"todo, in_progress, blocked, review, or done (default todo)"`
	Owner     string   `json:"owner,omitempty" jsonschema:"task owner (e.g. @username)"`
	DependsOn []string `json:"depends_on,omitempty" jsonschema:"task ids this task waits on"`
	Estimate  string   `json:"estimate,omitempty" jsonschema:"free-form effort estimate (e.g. 2d)"`
	Due       string   `json:"due,omitempty" jsonschema:"due date in YYYY-MM-DD form"`
	Tags      []string `json:"tags,omitempty"`
	Subtasks  []string `json:"subtasks,omitempty" jsonschema:"checklist item texts"`
}

type createTaskOutput struct {
	ID     string       `json:"id"`
	Record recordOutput `json:"record"`
}

type updateTaskInput struct {
	ID          string           `json:"id" jsonschema:"required,the task identifier (e.g. AUTH-001)"`
	Title       string           `json:"title,omitempty"`
	Priority    string           `json:"priority,omitempty" jsonschema:"P0, P1, P2, or P3"`
	Status      string           `json:"status,omitempty" jsonschema:"todo, in_progress, blocked, review, or done"`
	Owner       string           `json:"owner,omitempty"`
	DependsOn   []string         `json:"depends_on,omitempty"`
	BlockedBy   []string         `json:"blocked_by,omitempty"`
	Estimate    string           `json:"estimate,omitempty"`
	Due         string           `json:"due,omitempty" jsonschema:"due date in YYYY-MM-DD form"`
	Tags        []string         `json:"tags,omitempty"`
	Subtasks    []subtaskPayload `json:"subtasks,omitempty" jsonschema:"replaces the checklist; each item carries text and a done flag"`
	Description string           `json:"description,omitempty" jsonschema:"replaces the description; prefix with 'append:' to concatenate instead"`
	Notes       string           `json:"notes,omitempty"`
}

type updateTaskOutput struct {
	ID            string   `json:"id"`
	ChangedFields []string `json:"changed_fields"`
}

type getNextTaskInput struct {
	Owner          string `json:"owner,omitempty" jsonschema:"only tasks with this owner"`
	Project        string `json:"project,omitempty" jsonschema:"only tasks in this project"`
	IncludeBlocked bool   `json:"include_blocked,omitempty" jsonschema:"keep blocked tasks in the result"`
	Limit          int    `json:"limit,omitempty" jsonschema:"maximum tasks to return (default 5)"`
}

type getNextTaskOutput struct {
	Tasks []recordOutput `json:"tasks"`
	Count int            `json:"count"`
}

type listTasksInput struct {
	Project  string `json:"project,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Status   string `json:"status,omitempty" jsonschema:"todo, in_progress, blocked, review, or done"`
	Priority string `json:"priority,omitempty" jsonschema:"P0, P1, P2, or P3"`
	Tag      string `json:"tag,omitempty"`
}

type listTasksOutput struct {
	Groups map[string][]recordOutput `json:"groups"`
	Count  int                       `json:"count"`
}

type importTasksInput struct {
	SourceText      string `json:"source_text" jsonschema:"required,planning text to extract draft tasks from"`
	Project         string `json:"project,omitempty" jsonschema:"uppercase project prefix for allocated ids"`
	DefaultPriority string `json:"default_priority,omitempty" jsonschema:"priority for titles with no keyword (default P2)"`
	PhaseFilter     string `json:"phase_filter,omitempty" jsonschema:"only import candidates under this level-2 heading"`
	DryRun          bool   `json:"dry_run,omitempty" jsonschema:"return candidates without writing the backlog"`
}

type candidateOutput struct {
	ID       string   `json:"id,omitempty"`
	Title    string   `json:"title"`
	Priority string   `json:"priority"`
	Phase    string   `json:"phase,omitempty"`
	Section  string   `json:"section,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Subtasks []string `json:"subtasks,omitempty"`
}

type importTasksOutput struct {
	Candidates    []candidateOutput `json:"candidates"`
	InsertedCount int               `json:"inserted_count"`
}

type promoteTaskInput struct {
	ID               string   `json:"id" jsonschema:"required,the backlog candidate identifier"`
	Owner            string   `json:"owner,omitempty"`
	PriorityOverride string   `json:"priority_override,omitempty" jsonschema:"P0, P1, P2, or P3"`
	DependsOn        []string `json:"depends_on,omitempty"`
	Estimate         string   `json:"estimate,omitempty"`
	Due              string   `json:"due,omitempty" jsonschema:"due date in YYYY-MM-DD form"`
}

type promoteTaskOutput struct {
	Record  recordOutput `json:"record"`
	Warning string       `json:"warning,omitempty"`
}

type archiveTaskInput struct {
	ID    string `json:"id" jsonschema:"required,the task identifier"`
	Force bool   `json:"force,omitempty" jsonschema:"archive even if the task is not done"`
}

type archiveTaskOutput struct {
	Record recordOutput `json:"record"`
}

type unarchiveTaskInput struct {
	ID string `json:"id" jsonschema:"required,the archived task identifier"`
}

type unarchiveTaskOutput struct {
	Record recordOutput `json:"record"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_task",
		Description: "Create a task directly in the active set, bypassing the backlog. Allocates the next free id for the project.",
	}, s.handleCreateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task",
		Description: "Update fields of an active task. A status change to done stamps the completion date.",
	}, s.handleUpdateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_next_task",
		Description: "Return the ready tasks in scheduling order: in_progress first, then by priority, due date, and id.",
	}, s.handleGetNextTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List active tasks grouped by status, with optional project/owner/status/priority/tag filters.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "import_tasks",
		Description: "Extract draft tasks from planning text and insert them into the backlog. Use dry_run to preview.",
	}, s.handleImportTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "promote_task",
		Description: "Materialize a backlog candidate into a full active task. Promoting an already-active id is a no-op warning.",
	}, s.handlePromoteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "archive_task",
		Description: "Move a done task to the archive. Use force to archive a task in any status.",
	}, s.handleArchiveTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "unarchive_task",
		Description: "Return an archived task to the active set at its frozen status.",
	}, s.handleUnarchiveTask)
}

// --- Tool handlers ---

func (s *Server) handleCreateTask(_ context.Context, _ *gomcp.CallToolRequest, input createTaskInput) (*gomcp.CallToolResult, createTaskOutput, error) {
	if input.Title == "" {
		return errorResult("title is required"), createTaskOutput{}, nil
	}

	rec, err := s.ctl.CreateTask(core.CreateOptions{
		Title:     input.Title,
		Project:   input.Project,
		Priority:  models.Priority(input.Priority),
		Status:    models.Status(input.Status),
		Owner:     input.Owner,
		DependsOn: input.DependsOn,
		Estimate:  input.Estimate,
		Due:       input.Due,
		Tags:      input.Tags,
		Subtasks:  input.Subtasks,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("creating task: %s", err)), createTaskOutput{}, nil
	}

	return nil, createTaskOutput{ID: rec.ID, Record: recordToOutput(rec)}, nil
}

func (s *Server) handleUpdateTask(_ context.Context, _ *gomcp.CallToolRequest, input updateTaskInput) (*gomcp.CallToolResult, updateTaskOutput, error) {
	if input.ID == "" {
		return errorResult("id is required"), updateTaskOutput{}, nil
	}

	var subtasks []models.Subtask
	if input.Subtasks != nil {
		subtasks = make([]models.Subtask, len(input.Subtasks))
		for i, st := range input.Subtasks {
			subtasks[i] = models.Subtask{Text: st.Text, Done: st.Done}
		}
	}

	_, changed, err := s.ctl.UpdateTask(input.ID, core.UpdateOptions{
		Title:       input.Title,
		Priority:    models.Priority(input.Priority),
		Status:      models.Status(input.Status),
		Owner:       input.Owner,
		DependsOn:   input.DependsOn,
		BlockedBy:   input.BlockedBy,
		Estimate:    input.Estimate,
		Due:         input.Due,
		Tags:        input.Tags,
		Subtasks:    subtasks,
		Description: input.Description,
		Notes:       input.Notes,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("updating task %s: %s", input.ID, err)), updateTaskOutput{}, nil
	}

	if changed == nil {
		changed = []string{}
	}
	return nil, updateTaskOutput{ID: input.ID, ChangedFields: changed}, nil
}

func (s *Server) handleGetNextTask(_ context.Context, _ *gomcp.CallToolRequest, input getNextTaskInput) (*gomcp.CallToolResult, getNextTaskOutput, error) {
	tasks, err := s.ctl.NextTasks(core.NextOptions{
		Owner:          input.Owner,
		Project:        input.Project,
		IncludeBlocked: input.IncludeBlocked,
		Limit:          input.Limit,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("getting next tasks: %s", err)), getNextTaskOutput{}, nil
	}

	out := getNextTaskOutput{
		Tasks: make([]recordOutput, len(tasks)),
		Count: len(tasks),
	}
	for i, t := range tasks {
		out.Tasks[i] = recordToOutput(t)
	}
	return nil, out, nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	grouped, err := s.ctl.ListTasks(core.ListFilter{
		Project:  input.Project,
		Owner:    input.Owner,
		Status:   models.Status(input.Status),
		Priority: models.Priority(input.Priority),
		Tag:      input.Tag,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}

	out := listTasksOutput{Groups: make(map[string][]recordOutput)}
	for status, tasks := range grouped {
		group := make([]recordOutput, len(tasks))
		for i, t := range tasks {
			group[i] = recordToOutput(t)
		}
		out.Groups[string(status)] = group
		out.Count += len(tasks)
	}
	return nil, out, nil
}

func (s *Server) handleImportTasks(_ context.Context, _ *gomcp.CallToolRequest, input importTasksInput) (*gomcp.CallToolResult, importTasksOutput, error) {
	if input.SourceText == "" {
		return errorResult("source_text is required"), importTasksOutput{}, nil
	}

	cands, inserted, err := s.ctl.ImportTasks(core.ImportOptions{
		Text:            input.SourceText,
		Project:         input.Project,
		DefaultPriority: models.Priority(input.DefaultPriority),
		PhaseFilter:     input.PhaseFilter,
		DryRun:          input.DryRun,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("importing tasks: %s", err)), importTasksOutput{}, nil
	}

	out := importTasksOutput{
		Candidates:    make([]candidateOutput, len(cands)),
		InsertedCount: inserted,
	}
	for i, cand := range cands {
		out.Candidates[i] = candidateOutput{
			ID:       cand.ID,
			Title:    cand.Title,
			Priority: string(cand.Priority),
			Phase:    cand.Phase,
			Section:  cand.Section,
			Tags:     cand.Tags,
			Subtasks: cand.Subtasks,
		}
	}
	return nil, out, nil
}

func (s *Server) handlePromoteTask(_ context.Context, _ *gomcp.CallToolRequest, input promoteTaskInput) (*gomcp.CallToolResult, promoteTaskOutput, error) {
	if input.ID == "" {
		return errorResult("id is required"), promoteTaskOutput{}, nil
	}

	rec, warning, err := s.ctl.PromoteTask(input.ID, core.PromoteOptions{
		Owner:            input.Owner,
		PriorityOverride: models.Priority(input.PriorityOverride),
		DependsOn:        input.DependsOn,
		Estimate:         input.Estimate,
		Due:              input.Due,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("promoting task %s: %s", input.ID, err)), promoteTaskOutput{}, nil
	}

	return nil, promoteTaskOutput{Record: recordToOutput(rec), Warning: warning}, nil
}

func (s *Server) handleArchiveTask(_ context.Context, _ *gomcp.CallToolRequest, input archiveTaskInput) (*gomcp.CallToolResult, archiveTaskOutput, error) {
	if input.ID == "" {
		return errorResult("id is required"), archiveTaskOutput{}, nil
	}

	rec, err := s.ctl.ArchiveTask(input.ID, input.Force)
	if err != nil {
		return errorResult(fmt.Sprintf("archiving task %s: %s", input.ID, err)), archiveTaskOutput{}, nil
	}

	return nil, archiveTaskOutput{Record: recordToOutput(rec)}, nil
}

func (s *Server) handleUnarchiveTask(_ context.Context, _ *gomcp.CallToolRequest, input unarchiveTaskInput) (*gomcp.CallToolResult, unarchiveTaskOutput, error) {
	if input.ID == "" {
		return errorResult("id is required"), unarchiveTaskOutput{}, nil
	}

	rec, err := s.ctl.UnarchiveTask(input.ID)
	if err != nil {
		return errorResult(fmt.Sprintf("unarchiving task %s: %s", input.ID, err)), unarchiveTaskOutput{}, nil
	}

	return nil, unarchiveTaskOutput{Record: recordToOutput(rec)}, nil
}

// --- Helpers ---

func recordToOutput(t *models.TaskRecord) recordOutput {
	out := recordOutput{
		ID:          t.ID,
		Title:       t.Title,
		Project:     t.Project,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		Owner:       t.Owner,
		DependsOn:   t.DependsOn,
		BlockedBy:   t.BlockedBy,
		Tags:        t.Tags,
		Estimate:    t.Estimate,
		Due:         t.Due,
		Created:     t.Created,
		Updated:     t.Updated,
		Completed:   t.Completed,
		Archived:    t.Archived,
		Description: t.Description,
		Notes:       t.Notes,
	}
	for _, st := range t.Subtasks {
		out.Subtasks = append(out.Subtasks, subtaskPayload{Text: st.Text, Done: st.Done})
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
