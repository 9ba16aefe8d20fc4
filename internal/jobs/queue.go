package jobs

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

const TaskCoverRefetch = "cover:refetch"

type CoverRefetchPayload struct {
	Code     string `json:"code"`
	CoverURL string `json:"cover_url"`
}

type Queue struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewQueue(redisAddr string) *Queue {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
		},
	)
	return &Queue{client: client, server: server, mux: asynq.NewServeMux()}
}

// EnqueueCoverRefetch schedules a retry of a failed cover download. The
// deterministic task ID collapses repeated failures for the same code into
// one pending task. Enqueue failures are logged, never propagated — the
// catalog write already succeeded.
func (q *Queue) EnqueueCoverRefetch(code, coverURL string) {
	payload, err := json.Marshal(CoverRefetchPayload{Code: code, CoverURL: coverURL})
	if err != nil {
		log.Printf("queue: marshal cover refetch payload: %v", err)
		return
	}
	task := asynq.NewTask(TaskCoverRefetch, payload,
		asynq.TaskID("cover:"+code),
		asynq.MaxRetry(3),
		asynq.ProcessIn(time.Minute),
	)
	if _, err := q.client.Enqueue(task); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
			return
		}
		log.Printf("queue: enqueue cover refetch for %s: %v", code, err)
	}
}

func (q *Queue) RegisterHandler(taskType string, handler asynq.Handler) {
	q.mux.Handle(taskType, handler)
}

func (q *Queue) Start() error {
	log.Println("Job queue worker starting...")
	return q.server.Start(q.mux)
}

func (q *Queue) Stop() {
	q.server.Shutdown()
	q.client.Close()
}
