// Package providertest provides a conformance test suite for provider.Provider
// implementations.
//
// Example usage:
//
//	func TestMyProvider(t *testing.T) {
//	    providertest.TestSuite(t, func(t *testing.T) provider.Provider {
//	        return myprovider.New(t.TempDir())
//	    })
//	}
package providertest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/kvault/provider"
)

// TestSuite runs every conformance test. newProvider must return a fresh,
// empty provider; the suite closes it.
func TestSuite(t *testing.T, newProvider func(t *testing.T) provider.Provider) {
	tests := []struct {
		name string
		fn   func(*testing.T, provider.Provider)
	}{
		{"ReadMiss", testReadMiss},
		{"WriteRead", testWriteRead},
		{"EmptyValue", testEmptyValue},
		{"Overwrite", testOverwrite},
		{"DeleteIdempotent", testDeleteIdempotent},
		{"List", testList},
		{"Isolation", testIsolation},
		{"Concurrent", testConcurrent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := newProvider(t)
			t.Cleanup(func() { _ = p.Close(context.Background()) })
			tc.fn(t, p)
		})
	}
}

func testReadMiss(t *testing.T, p provider.Provider) {
	v, ok, err := p.Read(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, v)
}

func testWriteRead(t *testing.T, p provider.Provider) {
	ctx := context.Background()
	want := []byte{0, 1, 2, 0xFF, 'K', 'V'}
	require.NoError(t, p.Write(ctx, "k", want))

	got, ok, err := p.Read(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, bytes.Equal(want, got), "provider must be byte transparent")
}

func testEmptyValue(t *testing.T, p provider.Provider) {
	ctx := context.Background()
	require.NoError(t, p.Write(ctx, "empty", []byte{}))

	got, ok, err := p.Read(ctx, "empty")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, got)
}

func testOverwrite(t *testing.T, p provider.Provider) {
	ctx := context.Background()
	require.NoError(t, p.Write(ctx, "k", []byte("first, longer value")))
	require.NoError(t, p.Write(ctx, "k", []byte("second")))

	got, ok, err := p.Read(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", string(got))
}

func testDeleteIdempotent(t *testing.T, p provider.Provider) {
	ctx := context.Background()
	require.NoError(t, p.Write(ctx, "k", []byte("v")))
	require.NoError(t, p.Delete(ctx, "k"))
	require.NoError(t, p.Delete(ctx, "k"))
	require.NoError(t, p.Delete(ctx, "never-written"))

	_, ok, err := p.Read(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func testList(t *testing.T, p provider.Provider) {
	ctx := context.Background()
	keys, err := p.List(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)

	want := []string{"a", "b/c", "user:42", "with space"}
	for _, k := range want {
		require.NoError(t, p.Write(ctx, k, []byte(k)))
	}
	require.NoError(t, p.Write(ctx, "gone", []byte("x")))
	require.NoError(t, p.Delete(ctx, "gone"))

	keys, err = p.List(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	require.Equal(t, want, keys)
}

func testIsolation(t *testing.T, p provider.Provider) {
	ctx := context.Background()
	require.NoError(t, p.Write(ctx, "ab", []byte("1")))
	require.NoError(t, p.Write(ctx, "a", []byte("2")))

	got, ok, err := p.Read(ctx, "ab")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", string(got))
}

func testConcurrent(t *testing.T, p provider.Provider) {
	ctx := context.Background()
	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := fmt.Sprintf("k%d", i)
			if err := p.Write(ctx, k, []byte(k)); err != nil {
				errs <- err
				return
			}
			got, ok, err := p.Read(ctx, k)
			if err != nil {
				errs <- err
				return
			}
			if !ok || string(got) != k {
				errs <- fmt.Errorf("read %s: ok=%v got=%q", k, ok, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
