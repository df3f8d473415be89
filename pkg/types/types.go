package types

import "time"

// WorkerCommand identifies the kind of work a Job carries.
type WorkerCommand string

const (
	CmdPredict       WorkerCommand = "predict"
	CmdStreamPredict WorkerCommand = "streampredict"
	CmdDescribe      WorkerCommand = "describe"
	CmdLoad          WorkerCommand = "load"
	CmdUnload        WorkerCommand = "unload"
	CmdScaleUp       WorkerCommand = "scaleup"
	CmdScaleDown     WorkerCommand = "scaledown"
)

// Batchable reports whether the command may share a batch with other jobs.
// Describe and stream-predict are always served in a batch of exactly one.
func (c WorkerCommand) Batchable() bool {
	return c != CmdDescribe && c != CmdStreamPredict
}

// RequestInput is the client-facing payload carried by a Job.
type RequestInput struct {
	// RequestID correlates the job with the originating client request.
	RequestID string `json:"request_id"`
	// ClientExpiryTS is a unix-milliseconds deadline past which the job is
	// no longer worth executing. Zero means no client deadline.
	ClientExpiryTS int64 `json:"client_expiry_ts,omitempty"`
	// Headers carries request metadata verbatim.
	Headers map[string]string `json:"headers,omitempty"`
	// Body is the opaque inference payload.
	Body []byte `json:"body,omitempty"`
}

// Expired reports whether the client deadline has passed at the given time.
func (in *RequestInput) Expired(now time.Time) bool {
	return in.ClientExpiryTS > 0 && now.UnixMilli() >= in.ClientExpiryTS
}

// Job is a unit of work flowing through a model's queues. The queueing core
// treats it as immutable apart from these fields.
type Job struct {
	ID    string        `json:"id"`
	Cmd   WorkerCommand `json:"cmd"`
	Input RequestInput  `json:"input"`
	// RecvTime is when the job entered the system.
	RecvTime time.Time `json:"recv_time,omitempty"`
}
