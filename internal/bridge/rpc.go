package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/animequote/internal/agent"
	"github.com/ppiankov/animequote/internal/logging"
	"github.com/ppiankov/animequote/internal/store"
)

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.opts.MaxBodyBytes+1))
	if err != nil {
		s.writeRPC(w, nil, nil, newError(CodeParseError, "could not read request body"))
		return
	}
	if int64(len(body)) > s.opts.MaxBodyBytes {
		s.writeRPC(w, nil, nil, newError(CodeInvalidRequest, "request body too large"))
		return
	}
	if !json.Valid(body) {
		s.writeRPC(w, nil, nil, newError(CodeParseError, "parse error"))
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeRPC(w, nil, nil, newError(CodeInvalidRequest, "request must be a JSON-RPC object"))
		return
	}
	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		s.writeRPC(w, req.ID, nil, newError(CodeInvalidRequest, `jsonrpc must be "2.0" and method is required`))
		return
	}

	logger := s.logger.With(
		zap.String(logging.FieldRequestID, middleware.GetReqID(r.Context())),
		zap.String("method", req.Method))

	var (
		result any
		rpcErr *RPCError
	)
	switch req.Method {
	case MethodMessageSend:
		result, rpcErr = s.messageSend(r.Context(), req.Params, logger)
	case MethodTasksGet:
		result, rpcErr = s.tasksGet(r.Context(), req.Params)
	case MethodTasksCancel:
		result, rpcErr = s.tasksCancel(r.Context(), req.Params)
	default:
		rpcErr = newError(CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}

	if rpcErr != nil {
		logger.Debug("rpc error", zap.Int("code", rpcErr.Code), zap.String("message", rpcErr.Message))
	}
	s.writeRPC(w, req.ID, result, rpcErr)
}

func (s *Server) writeRPC(w http.ResponseWriter, id json.RawMessage, result any, rpcErr *RPCError) {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	resp := Response{JSONRPC: jsonRPCVersion, ID: id}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) messageSend(ctx context.Context, raw json.RawMessage, logger *zap.Logger) (*Task, *RPCError) {
	var params MessageSendParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	msg := params.Message
	if msg == nil || len(msg.Parts) == 0 {
		return nil, newError(CodeInvalidParams, "params.message with at least one part is required")
	}
	req, perr := agentRequest(msg.Parts)
	if perr != nil {
		return nil, perr
	}

	task := &Task{
		Kind:      "task",
		ID:        uuid.NewString(),
		ContextID: firstNonEmpty(msg.ContextID, uuid.NewString()),
	}
	user := *msg
	user.Parts = redactParts(msg.Parts)
	user.Kind = "message"
	user.Role = "user"
	user.MessageID = firstNonEmpty(user.MessageID, uuid.NewString())
	user.TaskID = task.ID
	user.ContextID = task.ContextID
	task.History = []Message{user}

	logger = logger.With(zap.String(logging.FieldTaskID, task.ID))

	runCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()
	result, err := s.agent.Handle(runCtx, req)

	var reply Message
	if err != nil {
		text := err.Error()
		if errors.Is(err, agent.ErrNoIntent) {
			text = "Sorry, I did not understand that request.\n\n" + s.agent.Help()
		}
		logger.Info("task failed", zap.Error(err))
		reply = s.agentMessage(task, Part{Kind: PartText, Text: text})
		task.Status = TaskStatus{State: TaskFailed, Message: &reply, Timestamp: s.timestamp()}
	} else {
		parts := []Part{{Kind: PartText, Text: result.Text}}
		if result.Data != nil {
			parts = append(parts, Part{Kind: PartData, Data: result.Data})
		}
		reply = s.agentMessage(task, parts[0])
		task.Artifacts = []Artifact{{ArtifactID: uuid.NewString(), Name: result.Skill, Parts: parts}}
		task.Status = TaskStatus{State: TaskCompleted, Message: &reply, Timestamp: s.timestamp()}
		logger.Info("task completed", zap.String(logging.FieldSkill, result.Skill))
	}
	task.History = append(task.History, reply)

	if err := s.saveTask(ctx, task); err != nil {
		logger.Error("persist task", zap.Error(err))
		return nil, newError(CodeInternalError, "could not persist task")
	}

	if params.Configuration != nil {
		trimHistory(task, params.Configuration.HistoryLength)
	}
	return task, nil
}

func (s *Server) tasksGet(ctx context.Context, raw json.RawMessage) (*Task, *RPCError) {
	var params TaskQueryParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.HistoryLength != nil && *params.HistoryLength < 0 {
		return nil, newError(CodeInvalidParams, "historyLength must not be negative")
	}

	task, rpcErr := s.loadTask(ctx, params.ID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	trimHistory(task, params.HistoryLength)
	return task, nil
}

func (s *Server) tasksCancel(ctx context.Context, raw json.RawMessage) (*Task, *RPCError) {
	var params TaskIDParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}

	task, rpcErr := s.loadTask(ctx, params.ID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if task.Status.State.Finished() {
		return nil, &RPCError{
			Code:    CodeTaskNotCancelable,
			Message: "task cannot be canceled",
			Data:    map[string]string{"id": task.ID, "state": string(task.Status.State)},
		}
	}

	// Tasks run to completion inside message/send, so this is only reachable
	// for records written by another process mid-run.
	task.Status = TaskStatus{State: TaskCanceled, Timestamp: s.timestamp()}
	if err := s.saveTask(ctx, task); err != nil {
		return nil, newError(CodeInternalError, "could not persist task")
	}
	return task, nil
}

func (s *Server) loadTask(ctx context.Context, id string) (*Task, *RPCError) {
	if strings.TrimSpace(id) == "" {
		return nil, newError(CodeInvalidParams, "params.id is required")
	}

	record, err := s.tasks.GetTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &RPCError{Code: CodeTaskNotFound, Message: "task not found", Data: map[string]string{"id": id}}
	}
	if err != nil {
		s.logger.Error("load task", zap.String(logging.FieldTaskID, id), zap.Error(err))
		return nil, newError(CodeInternalError, "could not load task")
	}

	var task Task
	if err := json.Unmarshal(record.Payload, &task); err != nil {
		s.logger.Error("decode task", zap.String(logging.FieldTaskID, id), zap.Error(err))
		return nil, newError(CodeInternalError, "stored task is corrupt")
	}
	return &task, nil
}

func (s *Server) saveTask(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.tasks.SaveTask(ctx, store.TaskRecord{
		ID:        task.ID,
		ContextID: task.ContextID,
		State:     string(task.Status.State),
		Payload:   payload,
	})
}

func (s *Server) agentMessage(task *Task, part Part) Message {
	return Message{
		Kind:      "message",
		Role:      "agent",
		MessageID: uuid.NewString(),
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Parts:     []Part{part},
	}
}

func (s *Server) timestamp() string {
	return s.now().Format(time.RFC3339)
}

// agentRequest joins text parts and takes the first data object
func agentRequest(parts []Part) (agent.Request, *RPCError) {
	var (
		texts []string
		req   agent.Request
	)
	for i, p := range parts {
		switch p.Kind {
		case PartText:
			if t := strings.TrimSpace(p.Text); t != "" {
				texts = append(texts, t)
			}
		case PartData:
			data, ok := p.Data.(map[string]any)
			if !ok {
				return agent.Request{}, newError(CodeInvalidParams, fmt.Sprintf("part %d: data must be a JSON object", i))
			}
			if req.Data == nil {
				req.Data = data
			}
		default:
			return agent.Request{}, newError(CodeInvalidParams, fmt.Sprintf("part %d: unsupported kind %q", i, p.Kind))
		}
	}
	req.Text = strings.Join(texts, "\n")
	if req.Text == "" && req.Data == nil {
		return agent.Request{}, newError(CodeInvalidParams, "message has no text or data")
	}
	return req, nil
}

// secretKeys are data fields forwarded upstream but never stored or echoed
var secretKeys = map[string]bool{"apiKey": true, "api_key": true}

// redactParts copies parts with secret fields removed from every data object
func redactParts(parts []Part) []Part {
	out := make([]Part, len(parts))
	for i, p := range parts {
		out[i] = p
		if p.Kind == PartData {
			out[i].Data = redactValue(p.Data)
		}
	}
	return out
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if secretKeys[k] {
				continue
			}
			out[k] = redactValue(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = redactValue(child)
		}
		return out
	default:
		return v
	}
}

// trimHistory keeps the last n messages; nil keeps everything
func trimHistory(task *Task, n *int) {
	if n == nil || *n < 0 || len(task.History) <= *n {
		return
	}
	task.History = task.History[len(task.History)-*n:]
}

func decodeParams(raw json.RawMessage, target any) *RPCError {
	if len(raw) == 0 || string(raw) == "null" {
		return newError(CodeInvalidParams, "params are required")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return newError(CodeInvalidParams, "invalid params: "+err.Error())
	}
	return nil
}

func newError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
