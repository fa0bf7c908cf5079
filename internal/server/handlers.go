package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimaudit/internal/audit"
	"github.com/ppiankov/claimaudit/internal/client"
	"github.com/ppiankov/claimaudit/internal/model"
	"github.com/ppiankov/claimaudit/internal/render"
	"github.com/ppiankov/claimaudit/internal/view"
	"github.com/ppiankov/claimaudit/internal/worklist"
)

// handleWorklist shows the filtered claim list. Returning to the list
// leaves the detail view, discarding its audit result.
func (s *Server) handleWorklist(c *gin.Context) {
	sess := sessionFrom(c)
	sess.detail.Close()

	if err := sess.worklist.Load(c.Request.Context(), s.svc); err != nil {
		s.logger.WithError(err).Warn("Claim list load failed")
		s.renderError(c, http.StatusBadGateway, "Could not load claims", err.Error(), "/", "Try again")
		return
	}
	sess.worklist.SetQuery(c.Query("q"))

	snap := sess.worklist.Snapshot()
	c.HTML(http.StatusOK, "worklist.html", worklistPage{
		Page:  Page{Title: "Claims worklist"},
		Query: snap.Query,
		Rows:  snap.Rows,
		Total: snap.Total,
	})
}

// handleDetail shows one claim and its verification panel
func (s *Server) handleDetail(c *gin.Context) {
	id, ok := s.claimID(c)
	if !ok {
		return
	}
	sess := sessionFrom(c)

	if err := sess.detail.Load(c.Request.Context(), s.svc, id); err != nil {
		s.renderLoadError(c, id, err)
		return
	}

	snap := sess.detail.Snapshot()
	if snap.State != view.Ready || snap.ClaimID != id {
		// another request in this session is still loading or navigated away
		c.HTML(http.StatusOK, "loading.html", loadingPage{
			Page:    Page{Title: fmt.Sprintf("Claim #%d", id), RefreshSeconds: pollSeconds(s.cfg.PollInterval.Seconds())},
			ClaimID: id,
		})
		return
	}
	c.HTML(http.StatusOK, "detail.html", s.detailPage(snap))
}

// handleTriggerAudit starts an audit of the claim shown and redirects back
// to the detail page, which polls while the audit runs
func (s *Server) handleTriggerAudit(c *gin.Context) {
	id, ok := s.claimID(c)
	if !ok {
		return
	}
	sess := sessionFrom(c)

	if err := sess.detail.Load(c.Request.Context(), s.svc, id); err != nil {
		s.renderLoadError(c, id, err)
		return
	}

	ticket, err := sess.detail.TriggerAudit()
	switch {
	case errors.Is(err, audit.ErrAuditInFlight):
	case err != nil:
		s.renderError(c, http.StatusConflict, "Audit not started", err.Error(), fmt.Sprintf("/claims/%d", id), "Back to claim")
		return
	default:
		s.logger.WithFields(logrus.Fields{"claim_id": id, "session": sess.id}).Info("Audit started")
		detail := sess.detail
		s.run(func() {
			payload, err := s.svc.Verify(s.baseCtx, ticket.ClaimID)
			if err != nil {
				s.logger.WithError(err).WithField("claim_id", ticket.ClaimID).Warn("Audit request failed")
			}
			detail.ResolveAudit(ticket, payload, err)
		})
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/claims/%d", id))
}

// handleAPIClaims returns the worklist rows matching ?q=
func (s *Server) handleAPIClaims(c *gin.Context) {
	claims, err := s.svc.ListClaims(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	query := c.Query("q")
	rows := model.Entries(worklist.Filter(claims, query))
	c.JSON(http.StatusOK, gin.H{
		"query":  query,
		"total":  len(claims),
		"claims": rows,
	})
}

// handleAPIAudit returns the panel state for the claim if it is the one
// open in this session, Idle otherwise
func (s *Server) handleAPIAudit(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid claim id"})
		return
	}

	snap := sessionFrom(c).detail.Snapshot()
	var state audit.State = audit.Idle{}
	if snap.Open && snap.ClaimID == id {
		state = snap.Audit
	}
	c.JSON(http.StatusOK, render.NewDocument(id, state))
}

func (s *Server) claimID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.renderError(c, http.StatusNotFound, "Claim not found", fmt.Sprintf("%q is not a claim id.", c.Param("id")), "/", "Back to worklist")
		return 0, false
	}
	return id, true
}

func (s *Server) renderLoadError(c *gin.Context, id int64, err error) {
	if client.IsNotFound(err) {
		s.renderError(c, http.StatusNotFound, "Claim not found", fmt.Sprintf("Claim %d does not exist.", id), "/", "Back to worklist")
		return
	}
	s.logger.WithError(err).WithField("claim_id", id).Warn("Claim load failed")
	s.renderError(c, http.StatusBadGateway, "Could not load claim", err.Error(), "/", "Back to worklist")
}

func (s *Server) renderError(c *gin.Context, status int, heading, message, backURL, backLabel string) {
	c.HTML(status, "error.html", errorPage{
		Page:      Page{Title: heading},
		Heading:   heading,
		Message:   message,
		BackURL:   backURL,
		BackLabel: backLabel,
	})
}

func (s *Server) detailPage(snap view.DetailSnapshot) detailPage {
	claim := snap.Claim
	p := detailPage{
		Page:          Page{Title: fmt.Sprintf("Claim #%d", claim.ID)},
		Claim:         claim,
		Fields:        claim.DetailFields(),
		Description:   model.Deref(claim.Description, ""),
		Transcription: model.Deref(claim.Transcription, ""),
		Audit:         render.NewDocument(claim.ID, snap.Audit),
	}
	if p.Audit.Kind == audit.KindRunning {
		p.Running = true
		p.RefreshSeconds = pollSeconds(s.cfg.PollInterval.Seconds())
	}
	return p
}

func pollSeconds(sec float64) int {
	if sec < 1 {
		return 1
	}
	return int(sec)
}
