package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TestModel is a minimal table for exercising the tracing callbacks.
type TestModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100"`
	CreatedAt time.Time
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&TestModel{}))
	return db
}

func setupTracerWithExporter(t *testing.T) (*tracetest.SpanRecorder, func()) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	return sr, func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	}
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestNewDBTracingPlugin_NormalizesThreshold(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: -1}, zap.NewNop())
	assert.Equal(t, 200*time.Millisecond, p.config.SlowQueryThresh)
}

func TestRegisterOtelGorm_Disabled(t *testing.T) {
	db := setupTestDB(t)

	p := NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, p.RegisterOtelGorm(db))

	// Queries still work without tracing callbacks
	require.NoError(t, db.Create(&TestModel{Name: "plain"}).Error)
}

func TestRegisterOtelGorm_Enabled(t *testing.T) {
	sr, cleanup := setupTracerWithExporter(t)
	defer cleanup()

	db := setupTestDB(t)
	p := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Second,
		DBSystem:        "sqlite",
	}, zap.NewNop())
	require.NoError(t, p.RegisterOtelGorm(db))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&TestModel{Name: "traced"}).Error)

	var out TestModel
	require.NoError(t, db.WithContext(ctx).First(&out, "name = ?", "traced").Error)
	assert.Equal(t, "traced", out.Name)

	var foundTable bool
	for _, s := range sr.Ended() {
		for _, attr := range s.Attributes() {
			if string(attr.Key) == "db.sql.table" && attr.Value.Emit() == "test_models" {
				foundTable = true
			}
		}
	}
	assert.True(t, foundTable, "expected a span carrying the db.sql.table attribute")
}
