package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// addWithIncrement runs the max-score append. Run re-evals the script when
// the server's script cache was flushed, and the error surfaces so a lost
// write never passes as a successful one.
func (r repo) addWithIncrement(ctx context.Context, c redis.Scripter, key string, value interface{}) error {
	return r.maxScoreScript.Run(ctx, c, []string{key}, value).Err()
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
