package timer_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vartrigger/statemachine/timer"
)

func TestCreateOneShotFires(t *testing.T) {
	var mu sync.Mutex
	var fired []int

	m := timer.NewManager(func(id int) {
		mu.Lock()
		fired = append(fired, id)
		mu.Unlock()
	})
	defer m.StopAll()

	require.NoError(t, m.CreateOneShot(1, 10))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1 && fired[0] == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCreateOnOccupiedSlotDeletesPrevious(t *testing.T) {
	var mu sync.Mutex
	var fired []int

	m := timer.NewManager(func(id int) {
		mu.Lock()
		fired = append(fired, id)
		mu.Unlock()
	})
	defer m.StopAll()

	require.NoError(t, m.CreateOneShot(5, 500))
	require.NoError(t, m.CreateOneShot(5, 10))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Len(t, fired, 1, "the replaced first-created timer must not also fire")
	mu.Unlock()
}

func TestDeleteBeforeFireSuppressesDelivery(t *testing.T) {
	var mu sync.Mutex
	var fired []int

	m := timer.NewManager(func(id int) {
		mu.Lock()
		fired = append(fired, id)
		mu.Unlock()
	})
	defer m.StopAll()

	require.NoError(t, m.CreateOneShot(9, 50))
	require.NoError(t, m.Delete(9))

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, fired)
	mu.Unlock()
}

func TestTickRepeats(t *testing.T) {
	var mu sync.Mutex
	count := 0

	m := timer.NewManager(func(id int) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer m.StopAll()

	require.NoError(t, m.CreateTick(3, 10))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestInvalidIDFailsNotFound(t *testing.T) {
	m := timer.NewManager(func(int) {})
	defer m.StopAll()

	assert.ErrorIs(t, m.CreateOneShot(0, 10), timer.ErrNotFound)
	assert.ErrorIs(t, m.CreateOneShot(255, 10), timer.ErrNotFound)
	assert.ErrorIs(t, m.CreateTick(-1, 10), timer.ErrNotFound)
	assert.ErrorIs(t, m.Delete(1000), timer.ErrNotFound)
}
