package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer)
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)
}

func TestStartServiceSpan(t *testing.T) {
	ctx, span := StartServiceSpan(context.Background(), "MessageService", "CreateMessage")
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	// EndSpan must tolerate both outcomes.
	EndSpan(span, errors.New("boom"))

	_, span = StartServiceSpan(context.Background(), "MessageService", "DeleteMessage")
	EndSpan(span, nil)
}

func TestRegisterGormMetrics(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, RegisterGormMetrics(db))

	type sample struct {
		ID   uint
		Name string
	}
	require.NoError(t, db.AutoMigrate(&sample{}))
	require.NoError(t, db.Create(&sample{Name: "a"}).Error)
	var got []sample
	require.NoError(t, db.Find(&got).Error)

	assert.Greater(t, testutil.CollectAndCount(DatabaseQueryLatency), 0)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(LoginAttempts.WithLabelValues("bad_password"))
	LoginAttempts.WithLabelValues("bad_password").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(LoginAttempts.WithLabelValues("bad_password")))
}
