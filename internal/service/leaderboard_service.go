package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"exam_sim_backend/internal/model"
	"exam_sim_backend/internal/repository"
	"exam_sim_backend/internal/util"
	"exam_sim_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const leaderboardCacheTTL = 30 * time.Second

// 化名形容词表，按名次循环取用，保证同一名次总是同一化名
var pseudonymAdjectives = []string{
	"Swift", "Clever", "Bright", "Steady", "Bold",
	"Quiet", "Sharp", "Lucky", "Calm", "Brave",
	"Keen", "Nimble", "Wise", "Quick", "Patient",
}

// LeaderboardEntry 排行榜单行。未授权查看真名时 Name 为化名
type LeaderboardEntry struct {
	Rank             int     `json:"rank"`
	UserID           uint    `json:"userId,omitempty"`
	Name             string  `json:"name"`
	IsViewer         bool    `json:"isViewer,omitempty"`
	TotalScore       float64 `json:"totalScore"`
	PercentageScore  float64 `json:"percentageScore"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
	CompletedAt      string  `json:"completedAt"`
}

// LeaderboardService 已完成成绩的只读排序视图。
// 排序结果按（模拟测试, 指派）缓存在 Redis，提交和批改时失效；
// 真名/化名在读取时按查看者身份现算，不进缓存。
type LeaderboardService struct {
	SimRepo    *repository.SimulationRepository
	ResultRepo *repository.ResultRepository
	UserRepo   *repository.UserRepository
	Redis      *redis.Client
}

func NewLeaderboardService(
	simRepo *repository.SimulationRepository,
	resultRepo *repository.ResultRepository,
	userRepo *repository.UserRepository,
	rdb *redis.Client,
) *LeaderboardService {
	return &LeaderboardService{
		SimRepo:    simRepo,
		ResultRepo: resultRepo,
		UserRepo:   userRepo,
		Redis:      rdb,
	}
}

// rankedRow 缓存里的中间行：已排序、已定名次，但未做身份处理
type rankedRow struct {
	Rank             int       `json:"rank"`
	UserID           uint      `json:"userId"`
	Name             string    `json:"name"`
	TotalScore       float64   `json:"totalScore"`
	PercentageScore  float64   `json:"percentageScore"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	CompletedAt      time.Time `json:"completedAt"`
}

// Leaderboard 生成排行榜。assignmentID 限定到单次指派；
// 班组指派只统计组内成员。
func (s *LeaderboardService) Leaderboard(viewerID uint, viewerRole model.UserRole, simulationID uint, assignmentID *uint, assignment *model.Assignment) ([]LeaderboardEntry, error) {
	sim, err := s.SimRepo.FindByID(simulationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrSimulationNotFound
		}
		return nil, err
	}
	if !sim.ShowResults && viewerRole == model.Student {
		return nil, util.ErrPermissionDenied
	}

	rows, err := s.rankedRows(sim.ID, assignmentID, assignment)
	if err != nil {
		return nil, err
	}

	canSeeNames := viewerRole == model.Admin || sim.CreatorID == viewerID

	entries := make([]LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entry := LeaderboardEntry{
			Rank:             row.Rank,
			TotalScore:       row.TotalScore,
			PercentageScore:  row.PercentageScore,
			TimeSpentSeconds: row.TimeSpentSeconds,
			CompletedAt:      row.CompletedAt.Format(time.RFC3339),
		}
		if canSeeNames || row.UserID == viewerID {
			entry.UserID = row.UserID
			entry.Name = row.Name
			entry.IsViewer = row.UserID == viewerID
		} else {
			entry.Name = Pseudonym(row.Rank)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *LeaderboardService) rankedRows(simulationID uint, assignmentID *uint, assignment *model.Assignment) ([]rankedRow, error) {
	key := s.cacheKey(simulationID, assignmentID)

	if s.Redis != nil {
		cached, err := s.Redis.Get(context.Background(), key).Result()
		if err == nil {
			var rows []rankedRow
			if err := json.Unmarshal([]byte(cached), &rows); err == nil {
				return rows, nil
			}
		}
	}

	// 班组指派只看组内成员的成绩
	var memberIDs []uint
	if assignment != nil && assignment.TargetType == model.AssignmentTargetGroup {
		ids, err := s.UserRepo.MemberIDsForGroup(assignment.TargetID)
		if err != nil {
			return nil, err
		}
		memberIDs = ids
	}

	results, err := s.ResultRepo.ListCompleted(simulationID, assignmentID, memberIDs)
	if err != nil {
		return nil, err
	}

	// 每个用户只保留最近一次成绩（查询已按完成时间倒序）
	seen := make(map[uint]bool, len(results))
	latest := make([]model.SimulationResult, 0, len(results))
	for _, r := range results {
		if seen[r.UserID] {
			continue
		}
		seen[r.UserID] = true
		latest = append(latest, r)
	}

	sort.SliceStable(latest, func(i, j int) bool {
		if latest[i].TotalScore != latest[j].TotalScore {
			return latest[i].TotalScore > latest[j].TotalScore
		}
		return latest[i].TimeSpentSeconds < latest[j].TimeSpentSeconds
	})

	rows := make([]rankedRow, 0, len(latest))
	for i, r := range latest {
		// 同分并列：名次取首个同分行的名次，1,2,2,4 而非 1,2,2,3
		rank := i + 1
		if i > 0 && r.TotalScore == latest[i-1].TotalScore {
			rank = rows[i-1].Rank
		}

		name := ""
		if r.User != nil {
			name = r.User.Name
		}
		var completedAt time.Time
		if r.CompletedAt != nil {
			completedAt = *r.CompletedAt
		}
		rows = append(rows, rankedRow{
			Rank:             rank,
			UserID:           r.UserID,
			Name:             name,
			TotalScore:       r.TotalScore,
			PercentageScore:  r.PercentageScore,
			TimeSpentSeconds: r.TimeSpentSeconds,
			CompletedAt:      completedAt,
		})
	}

	if s.Redis != nil {
		if encoded, err := json.Marshal(rows); err == nil {
			if err := s.Redis.Set(context.Background(), key, encoded, leaderboardCacheTTL).Err(); err != nil {
				logger.Log.Warn("leaderboard cache write failed", zap.Error(err))
			}
		}
	}
	return rows, nil
}

// Invalidate 提交或批改后清缓存。清两把 key：指派范围的和全局的
func (s *LeaderboardService) Invalidate(simulationID uint, assignmentID *uint) {
	if s.Redis == nil {
		return
	}
	keys := []string{s.cacheKey(simulationID, nil)}
	if assignmentID != nil {
		keys = append(keys, s.cacheKey(simulationID, assignmentID))
	}
	if err := s.Redis.Del(context.Background(), keys...).Err(); err != nil {
		logger.Log.Warn("leaderboard cache invalidation failed",
			zap.Uint("simulationId", simulationID), zap.Error(err))
	}
}

func (s *LeaderboardService) cacheKey(simulationID uint, assignmentID *uint) string {
	if assignmentID != nil {
		return fmt.Sprintf("leaderboard:%d:a%d", simulationID, *assignmentID)
	}
	return fmt.Sprintf("leaderboard:%d:all", simulationID)
}

// Pseudonym 按名次从固定形容词表循环派生化名，同名次永远同名
func Pseudonym(rank int) string {
	adj := pseudonymAdjectives[(rank-1+len(pseudonymAdjectives))%len(pseudonymAdjectives)]
	return fmt.Sprintf("%s Candidate #%d", adj, rank)
}
