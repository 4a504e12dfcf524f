package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/smartexam/internal/model"
)

// LobbyExam is one published exam together with the student's progress on it.
type LobbyExam struct {
	model.ExamDefinition
	SessionID     *uuid.UUID           `json:"session_id,omitempty"`
	SessionStatus *model.SessionStatus `json:"session_status,omitempty"`
	Result        *model.ExamResult    `json:"result,omitempty"`
}

// Lobby groups the published exams by where the student stands.
type Lobby struct {
	Available  []LobbyExam `json:"available"`
	InProgress []LobbyExam `json:"in_progress"`
	Finished   []LobbyExam `json:"finished"`
}

// Lobby lists published exams for a student. Exams without a session, or with
// a NOT_STARTED one, are available; terminal sessions carry their result.
func (s *ExamSessionService) Lobby(ctx context.Context, studentID int) (*Lobby, error) {
	exams, err := s.catalog.ListPublished(ctx)
	if err != nil {
		return nil, storageErr("list published exams", err)
	}

	sessions, err := s.store.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	byExam := make(map[uuid.UUID]*model.ExamSession, len(sessions))
	for i := range sessions {
		byExam[sessions[i].ExamID] = &sessions[i]
	}

	lobby := &Lobby{
		Available:  []LobbyExam{},
		InProgress: []LobbyExam{},
		Finished:   []LobbyExam{},
	}
	for _, exam := range exams {
		entry := LobbyExam{ExamDefinition: exam}
		sess, ok := byExam[exam.ID]
		if !ok || sess.Status == model.SessionStatusNotStarted {
			lobby.Available = append(lobby.Available, entry)
			continue
		}

		id, status := sess.ID, sess.Status
		entry.SessionID = &id
		entry.SessionStatus = &status
		if status.IsTerminal() {
			entry.Result = sess.Result()
			lobby.Finished = append(lobby.Finished, entry)
		} else {
			lobby.InProgress = append(lobby.InProgress, entry)
		}
	}
	return lobby, nil
}
