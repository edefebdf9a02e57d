package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"pittsburgh/internal/history"
	"pittsburgh/internal/scenario"
	"pittsburgh/internal/verifier"
)

type verifyRequest struct {
	TargetURL string `json:"target_url"`
}

// handleVerify runs one pass against the default scenario, overridden by
// the request body. Passes are serialized: a second request waits for the
// browser to become free.
func (s *Server) handleVerify(c *gin.Context) {
	if s.run == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no runner configured"})
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sc := scenario.Default()
	if req.TargetURL != "" {
		sc.TargetURL = req.TargetURL
	}

	s.mu.Lock()
	res, err := s.run(sc)
	s.mu.Unlock()
	if err != nil {
		log.Errorf("Verification run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res.Manifest)
}

// handleList returns the run index when a history store is attached, and
// otherwise the manifests found in the workspace.
func (s *Server) handleList(c *gin.Context) {
	if s.store != nil {
		recs, err := s.store.List(50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, recs)
		return
	}

	ids, err := verifier.FindRuns(s.workspace)
	if err != nil {
		c.JSON(http.StatusOK, []verifier.Manifest{})
		return
	}
	manifests := make([]verifier.Manifest, 0, len(ids))
	for _, id := range ids {
		m, merr := verifier.LoadManifest(filepath.Join(s.workspace, "runs", id, "run.json"))
		if merr != nil {
			log.Debugf("Skipping run %s: %v", id, merr)
			continue
		}
		manifests = append(manifests, m)
	}
	c.JSON(http.StatusOK, manifests)
}

func (s *Server) handleGet(c *gin.Context) {
	id := c.Param("id")
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	if s.workspace != "" {
		m, err := verifier.LoadManifest(filepath.Join(s.workspace, "runs", id, "run.json"))
		if err == nil {
			c.JSON(http.StatusOK, m)
			return
		}
	}

	if s.store != nil {
		rec, err := s.store.Get(id)
		if err == nil {
			c.JSON(http.StatusOK, rec)
			return
		}
		if !errors.Is(err, history.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
}
