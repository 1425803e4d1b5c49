// ABOUTME: Bank contexts of the buffer bridge
// ABOUTME: Open/Serialized/Closed state machine, insertion, kit setters and serialization
package bridge

import (
	"fmt"
	"log"

	"github.com/op1kit/op1drum/pkg/op1"
)

// BankState is the lifecycle state of a Bank
type BankState int

const (
	BankOpen BankState = iota
	BankSerialized
	BankClosed
)

func (s BankState) String() string {
	switch s {
	case BankOpen:
		return "open"
	case BankSerialized:
		return "serialized"
	case BankClosed:
		return "closed"
	default:
		return fmt.Sprintf("BankState(%d)", int(s))
	}
}

// Bank accumulates samples for one exported drum file
type Bank struct {
	owner *Bridge
	id    uint64
	ctx   uint32
	state BankState // guarded by owner.mu
	count int       // guarded by owner.mu
}

// State returns the bank's lifecycle state
func (bk *Bank) State() BankState {
	bk.owner.mu.Lock()
	defer bk.owner.mu.Unlock()
	return bk.state
}

// Len returns the number of inserted samples
func (bk *Bank) Len() int {
	bk.owner.mu.Lock()
	defer bk.owner.mu.Unlock()
	return bk.count
}

func (bk *Bank) String() string {
	return fmt.Sprintf("bank#%d(%#x)", bk.id, bk.ctx)
}

// CreateBank asks the module for a new drum context
func (b *Bridge) CreateBank() (*Bank, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.scratch()
	defer s.release()

	out, err := s.alloc(4)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}
	if status := b.mod.DrumInit(out); status != 0 {
		return nil, statusErr(ErrInit, "drum_init", status)
	}
	ctx, err := s.readUint32(out)
	if err != nil || ctx == 0 || int32(ctx) < 0 {
		return nil, fmt.Errorf("%w: module returned invalid context %#x", ErrInit, ctx)
	}

	bank := &Bank{owner: b, id: b.nextSerial(), ctx: ctx, state: BankOpen}
	b.banks[bank.id] = bank
	logf("created %v", bank)
	return bank, nil
}

// Insert adds a decoded sample to the bank. A sample may be inserted into
// one bank only. A failed insert does not roll back earlier ones.
func (b *Bridge) Insert(bank *Bank, sample Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkBank(bank, BankOpen); err != nil {
		return err
	}
	entry, err := b.lookup(sample)
	if err != nil {
		return err
	}
	if entry.inserted != nil {
		return fmt.Errorf("%w: %v already inserted into %v", ErrState, sample, entry.inserted)
	}
	if bank.count >= op1.Slots {
		return fmt.Errorf("%w: %w", ErrInsert, ErrTooManySamples)
	}

	if status := b.mod.DrumAddSample(bank.ctx, sample.ptr); status != 0 {
		return statusErr(ErrInsert, "drum_add_sample", status)
	}
	entry.inserted = bank
	bank.count++
	logf("inserted %v into %v (%d)", sample, bank, bank.count)
	return nil
}

// Serialize renders the bank to an OP-1 drum AIFF. It may be called once;
// the bank is Serialized afterwards whatever the outcome.
func (b *Bridge) Serialize(bank *Bank) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkBank(bank, BankOpen); err != nil {
		return nil, err
	}
	bank.state = BankSerialized

	s := b.scratch()
	defer s.release()

	out, err := s.alloc(8)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	if status := b.mod.DrumWriteBuffer(bank.ctx, out, out+4); status != 0 {
		if bank.count == 0 {
			return nil, fmt.Errorf("%w: %w: %w", ErrSerialize, op1.ErrNoSamples,
				&StatusError{Op: "drum_write_buffer", Status: status})
		}
		return nil, statusErr(ErrSerialize, "drum_write_buffer", status)
	}

	data, err := s.readUint32(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	length, err := s.readUint32(out + 4)
	if err != nil {
		b.mod.Free(data)
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	rendered, err := b.mod.Read(data, length)
	b.mod.Free(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}

	logf("serialized %v: %d bytes", bank, len(rendered))
	return rendered, nil
}

// DestroyBank releases the bank's module resources. Failures are logged.
func (b *Bridge) DestroyBank(bank *Bank) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bank == nil {
		return
	}
	if bank.state == BankClosed {
		log.Printf("bridge: destroy of closed %v ignored", bank)
		return
	}
	bank.state = BankClosed
	delete(b.banks, bank.id)

	if status := b.mod.DrumDestroy(bank.ctx); status != 0 {
		log.Printf("bridge: drum_destroy(%v) returned status %d", bank, status)
	}
}

func (b *Bridge) checkBank(bank *Bank, want BankState) error {
	if bank == nil {
		return fmt.Errorf("%w: nil bank", ErrState)
	}
	if bank.state != want {
		return fmt.Errorf("%w: %v is %v, want %v", ErrState, bank, bank.state, want)
	}
	if b.banks[bank.id] != bank {
		return fmt.Errorf("%w: %v belongs to another bridge", ErrState, bank)
	}
	return nil
}
