package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/nutriplan/internal/day"
	"github.com/verte-zerg/nutriplan/internal/model"
)

func (s *Server) getWindows(c *gin.Context) {
	key, _, ok := s.dayParam(c)
	if !ok {
		return
	}
	snap, err := s.svc.Snapshot(c.Request.Context(), key)
	if err != nil {
		s.fail(c, err)
		return
	}
	if len(snap.Windows) == 0 {
		s.fail(c, day.ErrNoPlan)
		return
	}
	c.JSON(http.StatusOK, newDayJSON(snap))
}

func (s *Server) postPlan(c *gin.Context) {
	_, date, ok := s.dayParam(c)
	if !ok {
		return
	}
	var body planRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	wake, err := optionalTime(body.Wake)
	if err != nil {
		s.fail(c, err)
		return
	}
	sleep, err := optionalTime(body.Sleep)
	if err != nil {
		s.fail(c, err)
		return
	}
	workout, err := optionalTime(body.Workout)
	if err != nil {
		s.fail(c, err)
		return
	}
	switch body.Energy {
	case "", model.EnergyLow, model.EnergyNormal, model.EnergyHigh:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown energy %q", body.Energy)})
		return
	}

	var snap day.Snapshot
	if len(body.QuickMeals) > 0 {
		in := model.CheckIn{Day: date, Wake: wake, Sleep: sleep, Workout: workout, Energy: body.Energy}
		for _, m := range body.QuickMeals {
			in.QuickMeals = append(in.QuickMeals, m.toModel())
		}
		snap, err = s.svc.CheckIn(c.Request.Context(), in)
	} else {
		snap, err = s.svc.PlanFullDay(c.Request.Context(), day.FullDayRequest{
			Day: date, Wake: wake, Sleep: sleep, Workout: workout, Energy: body.Energy, Targets: body.Targets,
		})
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDayJSON(snap))
}

func (s *Server) postPartialPlan(c *gin.Context) {
	key, _, ok := s.dayParam(c)
	if !ok {
		return
	}
	if today := day.DayKey(s.svc.Now()); key != today {
		c.JSON(http.StatusBadRequest, gin.H{"error": "partial plans are only available for today", "today": today})
		return
	}
	res, err := s.svc.PlanPartialDay(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, partialJSON{
		Tomorrow:         res.Tomorrow,
		RemainingHours:   res.Plan.RemainingHours,
		TotalWakingHours: res.Plan.TotalWakingHours,
		Factor:           res.Plan.Factor,
		ProRated:         res.Plan.ProRated,
		Plan:             newDayJSON(res.Snapshot),
	})
}

func (s *Server) postMeal(c *gin.Context) {
	key, _, ok := s.dayParam(c)
	if !ok {
		return
	}
	var body mealJSON
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Calories < 0 || body.Protein < 0 || body.Carbs < 0 || body.Fat < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "macros must not be negative"})
		return
	}
	snap, err := s.svc.LogMeal(c.Request.Context(), key, body.toModel())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDayJSON(snap))
}

func (s *Server) getScore(c *gin.Context) {
	key, _, ok := s.dayParam(c)
	if !ok {
		return
	}
	daily, windows, err := s.svc.Scores(c.Request.Context(), key)
	if err != nil {
		s.fail(c, err)
		return
	}
	if windows == nil {
		windows = []model.WindowScore{}
	}
	c.JSON(http.StatusOK, scoreJSON{Daily: daily, Windows: windows})
}

func (s *Server) getImpact(c *gin.Context) {
	key, _, ok := s.dayParam(c)
	if !ok {
		return
	}
	contexts, err := model.ParseContexts(c.QueryArray("context"))
	if err != nil {
		s.fail(c, err)
		return
	}
	im, err := s.svc.Impact(c.Request.Context(), key, contexts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, im)
}

func (s *Server) getNutrient(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	info, ok := s.svc.Catalog().Lookup(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown nutrient %q", name)})
		return
	}
	c.JSON(http.StatusOK, newNutrientJSON(info))
}

func optionalTime(s string) (*model.TimeOfDay, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := model.ParseTimeOfDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
