package httptransport

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"boss-server-go/internal/domain/auth"
	"boss-server-go/internal/domain/auth/store"
	"boss-server-go/internal/domain/notify"
	"boss-server-go/internal/platform/errors"
	"boss-server-go/internal/platform/logging"
	"boss-server-go/internal/platform/storage"
)

// SystemService exposes administrative endpoints: process and host health,
// session counts and forced sign-out. Everything here requires the super
// user with a passed MFA challenge.
type SystemService struct {
	authority *auth.Authority
	states    store.Store
	registry  *notify.Registry
	migration *storage.MigrationManager
	logger    *logging.Logger
	started   time.Time
}

func NewSystemService(authority *auth.Authority, states store.Store, registry *notify.Registry, migration *storage.MigrationManager, logger *logging.Logger) (*SystemService, error) {
	if authority == nil {
		return nil, errors.New(errors.KindTransport, "system.new", "authority is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &SystemService{
		authority: authority,
		states:    states,
		registry:  registry,
		migration: migration,
		logger:    logger,
		started:   time.Now(),
	}, nil
}

func (s *SystemService) Register(secured *gin.RouterGroup) {
	admin := secured.Group("/system")
	admin.Use(RequireSuperUser(), RequireMFA())
	{
		admin.GET("/info", s.handleInfo)
		admin.GET("/sessions", s.handleSessions)
		admin.POST("/sessions/purge", s.handlePurge)
		admin.POST("/users/:id/signout", s.handleForceSignOut)
		admin.GET("/migrations", s.handleMigrations)
	}

	s.logger.InfoTag("HTTP", "system routes registered")
}

func (s *SystemService) handleInfo(c *gin.Context) {
	info := gin.H{
		"go":         runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"uptime":     time.Since(s.started).Round(time.Second).String(),
	}

	if hostInfo, err := host.Info(); err == nil {
		info["host"] = gin.H{
			"hostname": hostInfo.Hostname,
			"os":       hostInfo.OS,
			"platform": hostInfo.Platform,
			"uptime":   hostInfo.Uptime,
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info["memory"] = gin.H{
			"total":       vm.Total,
			"used":        vm.Used,
			"usedPercent": vm.UsedPercent,
		}
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		info["cpuPercent"] = percents[0]
	}

	RespondSuccess(c, http.StatusOK, info, "")
}

func (s *SystemService) handleSessions(c *gin.Context) {
	data := gin.H{}
	if s.states != nil {
		if count, err := s.states.Count(c.Request.Context()); err == nil {
			data["activeSessions"] = count
		}
	}
	if s.registry != nil {
		data["connectedClients"] = s.registry.Count()
	}
	RespondSuccess(c, http.StatusOK, data, "")
}

func (s *SystemService) handlePurge(c *gin.Context) {
	n, err := s.authority.PurgeExpiredSessions(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"purged": n}, "")
}

func (s *SystemService) handleForceSignOut(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.authority.SignOutUser(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	if s.registry != nil {
		s.registry.CloseConnection(id)
	}
	RespondSuccess(c, http.StatusOK, nil, "user signed out")
}

func (s *SystemService) handleMigrations(c *gin.Context) {
	if s.migration == nil {
		RespondSuccess(c, http.StatusOK, gin.H{"migrations": []any{}}, "")
		return
	}
	history, err := s.migration.GetMigrationHistory()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"migrations": history}, "")
}
