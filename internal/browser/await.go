package browser

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout возвращается Await, когда условие не выполнилось до таймаута.
var ErrWaitTimeout = errors.New("wait timed out")

const pollInterval = 100 * time.Millisecond

// Condition сообщает о готовности. Может блокироваться на событии до ctx.Done()
// или сразу вернуть результат проверки; во втором случае Await опрашивает повторно.
type Condition func(ctx context.Context) (bool, error)

// Await ждёт выполнения cond не дольше timeout.
// Отмена родительского ctx возвращает ctx.Err(), истечение таймаута возвращает ErrWaitTimeout.
func Await(ctx context.Context, timeout time.Duration, cond Condition) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := cond(waitCtx)
		if ok {
			return nil
		}
		if waitCtx.Err() != nil {
			return waitErr(ctx)
		}
		if err != nil {
			return err
		}

		select {
		case <-waitCtx.Done():
			return waitErr(ctx)
		case <-ticker.C:
		}
	}
}

// Signal возвращает условие, которое выполняется, когда в ch пришло значение.
// Значение записывается в out. Проверка не блокируется, Await опрашивает повторно.
func Signal[T any](ch <-chan T, out *T) Condition {
	return func(ctx context.Context) (bool, error) {
		select {
		case v := <-ch:
			if out != nil {
				*out = v
			}
			return true, nil
		default:
			return false, nil
		}
	}
}

// Tolerant считает ошибку cond признаком неготовности, пока идёт ожидание.
// Вычисление в странице падает, если во время него сменился документ.
func Tolerant(cond Condition) Condition {
	return func(ctx context.Context) (bool, error) {
		ok, err := cond(ctx)
		if err != nil {
			return false, nil
		}
		return ok, nil
	}
}

// Either выполняется, когда выполнено любое из условий. Ошибка первого
// сработавшего с ошибкой условия возвращается сразу.
func Either(conds ...Condition) Condition {
	return func(ctx context.Context) (bool, error) {
		for _, cond := range conds {
			ok, err := cond(ctx)
			if ok || err != nil {
				return ok, err
			}
		}
		return false, nil
	}
}

func waitErr(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return ErrWaitTimeout
}
