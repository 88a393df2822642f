package storage

import (
	"context"
	"testing"
	"time"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, defaultLeaderboardLimit, 0},
		{-5, -1, defaultLeaderboardLimit, 0},
		{20, 40, 20, 40},
		{1000, 0, maxLeaderboardLimit, 0},
	}
	for _, tt := range tests {
		l, o := normalizePage(tt.limit, tt.offset)
		if l != tt.wantLimit || o != tt.wantOffset {
			t.Errorf("normalizePage(%d, %d) = (%d, %d), want (%d, %d)", tt.limit, tt.offset, l, o, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestAverageMoves(t *testing.T) {
	tests := []struct {
		total  int64
		rounds int
		want   float64
	}{
		{0, 0, 0},
		{40, 2, 20},
		{47, 3, 15.7},
		{10, -1, 0},
	}
	for _, tt := range tests {
		if got := averageMoves(tt.total, tt.rounds); got != tt.want {
			t.Errorf("averageMoves(%d, %d) = %v, want %v", tt.total, tt.rounds, got, tt.want)
		}
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	ctx := context.Background()

	if err := s.InsertRoundResult(ctx, RoundResult{UserID: "u1", Moves: 16, Duration: time.Second}); err != nil {
		t.Errorf("nil store insert should be a no-op, got %v", err)
	}
	list, err := s.ListByUserID(ctx, "u1")
	if err != nil || len(list) != 0 {
		t.Errorf("nil store history should be empty, got %v %v", list, err)
	}
	entries, err := s.ListLeaderboard(ctx, 10, 0)
	if err != nil || len(entries) != 0 {
		t.Errorf("nil store leaderboard should be empty, got %v %v", entries, err)
	}
	entry, err := s.GetLeaderboardEntryByUserID(ctx, "u1")
	if err != nil || entry != nil {
		t.Errorf("nil store entry should be nil, got %v %v", entry, err)
	}
	s.Close()
}
