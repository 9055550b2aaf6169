package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"casework/internal/cases/models"
	"casework/pkg/domain"
)

const defaultRedisPrefix = "casework:"

// Redis stores each case document under its id and indexes case numbers with SETNX. Save runs
// the optimistic check inside WATCH/MULTI so a concurrent writer aborts the transaction.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) caseKey(id domain.CaseID) string {
	return r.prefix + "case:" + id.String()
}

func (r *Redis) numberKey(number string) string {
	return r.prefix + "case-number:" + number
}

func (r *Redis) Create(ctx context.Context, c *models.ConflictCase) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	numberKey := r.numberKey(c.CaseNumber())
	claimed, err := r.client.SetNX(ctx, numberKey, c.ID().String(), 0).Result()
	if err != nil {
		return fmt.Errorf("claim case number: %w", err)
	}
	if !claimed {
		return numberTaken(c.CaseNumber())
	}

	stored, err := r.client.SetNX(ctx, r.caseKey(c.ID()), data, 0).Result()
	if err != nil || !stored {
		// release the number so a retry with a fresh id can take it
		_ = r.client.Del(ctx, numberKey).Err()
		if err != nil {
			return fmt.Errorf("store case: %w", err)
		}
		return caseExists(c.ID())
	}
	c.MarkPersisted()
	return nil
}

func (r *Redis) Load(ctx context.Context, id domain.CaseID) (*models.ConflictCase, error) {
	data, err := r.client.Get(ctx, r.caseKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, caseNotFound(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("load case %s: %w", id, err)
	}
	return Unmarshal(data)
}

func (r *Redis) FindByNumber(ctx context.Context, caseNumber string) (*models.ConflictCase, error) {
	raw, err := r.client.Get(ctx, r.numberKey(caseNumber)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, caseNotFound(caseNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve case number %s: %w", caseNumber, err)
	}
	id, err := domain.ParseCaseID(raw)
	if err != nil {
		return nil, fmt.Errorf("resolve case number %s: %w", caseNumber, err)
	}
	return r.Load(ctx, id)
}

func (r *Redis) Save(ctx context.Context, c *models.ConflictCase) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	key := r.caseKey(c.ID())
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return caseNotFound(c.ID().String())
		}
		if err != nil {
			return fmt.Errorf("read case %s: %w", c.ID(), err)
		}
		current, err := stamp(stored)
		if err != nil {
			return err
		}
		if !current.matches(c) {
			return staleWrite(c)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return staleWrite(c)
	}
	if err != nil {
		return err
	}
	c.MarkPersisted()
	return nil
}
