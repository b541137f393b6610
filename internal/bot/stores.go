package bot

import (
	"context"
	"time"

	"poupapig/internal/core"
)

// Store contracts the pipeline depends on. The sqlite repository satisfies
// all three; tests plug in fakes.
type (
	UserStore interface {
		UserByPhone(ctx context.Context, phone string) (core.User, error)
		CreateUser(ctx context.Context, u *core.User) error
		UpdateUser(ctx context.Context, u core.User) error
	}

	TransactionStore interface {
		SaveTransaction(ctx context.Context, t *core.Transaction) error
		TransactionsByDateRange(ctx context.Context, userID int64, start, end time.Time) ([]core.Transaction, error)
		MonthlySum(ctx context.Context, userID int64, typ core.TransactionType, now time.Time) (int64, error)
	}

	CategoryStore interface {
		CategoryByID(ctx context.Context, id int64) (core.Category, error)
		CategoriesByType(ctx context.Context, typ core.TransactionType, userID int64) ([]core.Category, error)
	}
)
