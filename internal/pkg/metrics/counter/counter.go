package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/edupay/ipn-gateway/internal/pkg/cache"
	"github.com/edupay/ipn-gateway/internal/pkg/database"
)

const (
	receivedCountersKey  = "integration:counters:received"
	processedCountersKey = "integration:counters:processed"
)

// AddReceived increments the pending received counter for an integration in Redis
func AddReceived(integrationID uint) error {
	ctx := context.Background()
	field := strconv.FormatUint(uint64(integrationID), 10)
	return cache.GetClient().HIncrBy(ctx, receivedCountersKey, field, 1).Err()
}

// AddProcessed increments the pending processed counter for an integration in Redis
func AddProcessed(integrationID uint) error {
	ctx := context.Background()
	field := strconv.FormatUint(uint64(integrationID), 10)
	return cache.GetClient().HIncrBy(ctx, processedCountersKey, field, 1).Err()
}

// FlushAll flushes both received and processed counters to the database
func FlushAll() error {
	if err := flushHashToTable(receivedCountersKey, "integrations", "received_count"); err != nil {
		return err
	}
	if err := flushHashToTable(processedCountersKey, "integrations", "processed_count"); err != nil {
		return err
	}
	return nil
}

// flushHashToTable drains a Redis hash atomically and applies batched increments
// to the integrations table. Uses RENAME to a temporary key for atomic drain
// without losing in-flight increments.
func flushHashToTable(redisKey, table, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	// Collect ids and increments; sort ids for stable SQL
	type pair struct {
		id  uint64
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		id, perr := strconv.ParseUint(k, 10, 64)
		if perr != nil {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{id: id, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	// UPDATE integrations SET <column> = <column> + CASE id WHEN ? THEN ? ... END WHERE id IN ( ... )
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE id ")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	builder.WriteString(" END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.id)
	}
	builder.WriteString(")")

	db := database.GetDB()
	if err := db.Exec(builder.String(), args...).Error; err != nil {
		return err
	}
	return nil
}
