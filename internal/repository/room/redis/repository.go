package redis

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc             *redis.Client
	logger         *slog.Logger
	maxScoreScript *redis.Script
}

// maxScoreScript appends a member to a sorted set with a score one above the
// current maximum, so ZRANGE yields insertion order and the lowest score is
// the longest-tenured member.
var maxScoreScript = redis.NewScript(`
	local maxScore = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
	local nextScore = 1
	if #maxScore > 0 then
		nextScore = tonumber(maxScore[2]) + 1
	end
	redis.call('ZADD', KEYS[1], nextScore, ARGV[1])
	return nextScore
`)

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:             rc,
		logger:         logger,
		maxScoreScript: maxScoreScript,
	}
}
