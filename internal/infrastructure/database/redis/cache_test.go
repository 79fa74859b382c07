package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	client *Client
	mock   redismock.ClientMock
	cache  Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.client = NewClientFromRedis(db, logging.NewNopLogger())
	s.cache = NewRedisCache(s.client, logging.NewNopLogger(), WithPrefix("test:"))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type cachedResult struct {
	Keywords []string `json:"keywords"`
}

func (s *CacheTestSuite) TestGet_CacheHit() {
	val := cachedResult{Keywords: []string{"gradient", "descent"}}
	data, _ := json.Marshal(val)

	s.mock.ExpectGet("test:key1").SetVal(string(data))

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGet_CacheMiss() {
	s.mock.ExpectGet("test:key1").RedisNil()

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)

	assert.Equal(s.T(), ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGet_NullSentinelIsMiss() {
	s.mock.ExpectGet("test:key1").SetVal(nullSentinel)

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)

	assert.Equal(s.T(), ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGet_CommandError() {
	s.mock.ExpectGet("test:key1").SetErr(assert.AnError)

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)

	assert.Error(s.T(), err)
	assert.True(s.T(), pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:k1", "test:k2").SetVal(2)

	err := s.cache.Delete(context.Background(), "k1", "k2")
	assert.NoError(s.T(), err)
}

func (s *CacheTestSuite) TestDelete_NoKeysIsNoop() {
	err := s.cache.Delete(context.Background())
	assert.NoError(s.T(), err)
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:k1").SetVal(1)

	exists, err := s.cache.Exists(context.Background(), "k1")
	assert.NoError(s.T(), err)
	assert.True(s.T(), exists)
}

func (s *CacheTestSuite) TestMGet_SkipsMissesAndSentinels() {
	s.mock.ExpectMGet("test:a", "test:b", "test:c").SetVal([]interface{}{`["x"]`, nil, nullSentinel})

	got, err := s.cache.MGet(context.Background(), []string{"a", "b", "c"})
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), map[string][]byte{"a": []byte(`["x"]`)}, got)
}

func (s *CacheTestSuite) TestGetOrSet_Hit() {
	val := cachedResult{Keywords: []string{"entropy"}}
	data, _ := json.Marshal(val)

	s.mock.ExpectGet("test:key1").SetVal(string(data))

	loaderCalls := 0
	var dest cachedResult
	err := s.cache.GetOrSet(context.Background(), "key1", &dest, time.Minute, func(ctx context.Context) (interface{}, error) {
		loaderCalls++
		return &val, nil
	})

	assert.NoError(s.T(), err)
	assert.Zero(s.T(), loaderCalls)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGetOrSet_LoaderError() {
	s.mock.ExpectGet("test:key1").RedisNil()

	var dest cachedResult
	err := s.cache.GetOrSet(context.Background(), "key1", &dest, time.Minute, func(ctx context.Context) (interface{}, error) {
		return nil, assert.AnError
	})

	assert.Equal(s.T(), assert.AnError, err)
}

func (s *CacheTestSuite) TestGetOrSet_NilResultCachesSentinel() {
	s.mock.ExpectGet("test:key1").RedisNil()
	s.mock.ExpectSet("test:key1", nullSentinel, 30*time.Second).SetVal("OK")

	var dest cachedResult
	err := s.cache.GetOrSet(context.Background(), "key1", &dest, time.Minute, func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})

	assert.Equal(s.T(), ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGetOrSet_SentinelSuppressesLoader() {
	s.mock.ExpectGet("test:key1").SetVal(nullSentinel)

	loaderCalls := 0
	var dest cachedResult
	err := s.cache.GetOrSet(context.Background(), "key1", &dest, time.Minute, func(ctx context.Context) (interface{}, error) {
		loaderCalls++
		return nil, nil
	})

	assert.Equal(s.T(), ErrCacheMiss, err)
	assert.Zero(s.T(), loaderCalls, "a live sentinel must not trigger a reload")
}

func (s *CacheTestSuite) TestDeleteByPrefix() {
	s.mock.ExpectScan(0, "test:rule:*", 100).SetVal([]string{"test:rule:a", "test:rule:b"}, 0)
	s.mock.ExpectDel("test:rule:a", "test:rule:b").SetVal(2)

	deleted, err := s.cache.DeleteByPrefix(context.Background(), "rule:")
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), deleted)
}

func (s *CacheTestSuite) TestTTL() {
	s.mock.ExpectTTL("test:k1").SetVal(time.Minute)

	ttl, err := s.cache.TTL(context.Background(), "k1")
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), time.Minute, ttl)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestJitterTTL_StaysWithinBounds(t *testing.T) {
	c := &redisCache{}
	base := time.Minute
	for i := 0; i < 100; i++ {
		got := c.jitterTTL(base)
		assert.GreaterOrEqual(t, got, time.Duration(float64(base)*0.9))
		assert.LessOrEqual(t, got, time.Duration(float64(base)*1.1))
	}
	assert.Zero(t, c.jitterTTL(0))
}
