package diagnostic

import "errors"

var (
	// ErrMalformedGraph marks graph JSON that cannot be decoded at all.
	// Structural violations are reported by Validate instead.
	ErrMalformedGraph = errors.New("malformed decision graph")

	// ErrUnknownOption 学习者提交了当前节点不存在的选项
	ErrUnknownOption = errors.New("unknown option for current node")

	// ErrSessionCompleted is returned when Advance is called on a session
	// that already reached a terminal state.
	ErrSessionCompleted = errors.New("session already completed")

	// ErrNodeNotFound means current_node_id points outside the graph. With a
	// validated graph this is a programming error, not a caller error.
	ErrNodeNotFound = errors.New("current node not found in graph")
)
