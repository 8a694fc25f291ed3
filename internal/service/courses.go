// courses.go — справочник курсов: сведения из LMS с LRU-кэшем и вычисление
// области хранения материалов курса.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/lmsclient"
)

// Prometheus-метрики кэша курсов.
var (
	courseCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_course_cache_hits_total",
		Help: "Количество попаданий в кэш курсов.",
	})
	courseCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_course_cache_misses_total",
		Help: "Количество промахов кэша курсов.",
	})
)

// CourseFetcher — источник сведений о курсах (lmsclient.Client).
type CourseFetcher interface {
	GetCourse(ctx context.Context, courseID int64) (*model.Course, error)
}

// CourseDirectory — справочник курсов с кэшем.
type CourseDirectory struct {
	fetcher       CourseFetcher
	cache         *expirable.LRU[int64, *model.Course]
	ownCategoryID int64
	logger        *slog.Logger
}

// NewCourseDirectory создаёт справочник курсов.
// maxSize и ttl — параметры LRU-кэша, ownCategoryID — категория
// курсов с собственными материалами.
func NewCourseDirectory(
	fetcher CourseFetcher,
	maxSize int,
	ttl time.Duration,
	ownCategoryID int64,
	logger *slog.Logger,
) *CourseDirectory {
	return &CourseDirectory{
		fetcher:       fetcher,
		cache:         expirable.NewLRU[int64, *model.Course](maxSize, nil, ttl),
		ownCategoryID: ownCategoryID,
		logger:        logger.With(slog.String("component", "course_directory")),
	}
}

// Course возвращает сведения о курсе (из кэша или LMS).
func (d *CourseDirectory) Course(ctx context.Context, courseID int64) (*model.Course, error) {
	if c, ok := d.cache.Get(courseID); ok {
		courseCacheHitsTotal.Inc()
		return c, nil
	}
	courseCacheMissesTotal.Inc()

	c, err := d.fetcher.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, lmsclient.ErrCourseNotFound) {
			return nil, fmt.Errorf("%w: курс %d", ErrNotFound, courseID)
		}
		d.logger.ErrorContext(ctx, "Ошибка получения курса из LMS",
			slog.Int64("course_id", courseID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrLMSUnavailable, err)
	}

	d.cache.Add(courseID, c)
	return c, nil
}

// ResolveScope возвращает область хранения материалов курса.
func (d *CourseDirectory) ResolveScope(ctx context.Context, courseID int64) (model.ScopeKey, error) {
	c, err := d.Course(ctx, courseID)
	if err != nil {
		return model.ScopeKey{}, err
	}
	return model.DeriveScope(*c, d.ownCategoryID), nil
}
