package dogs

import "testing"

func TestPlayersAddAssignsSequentialIDs(t *testing.T) {
	p := NewPlayers()
	p1 := p.Add("alpha", 0, nil, nil)
	p2 := p.Add("beta", 0, nil, nil)
	if p1.ID != 0 || p2.ID != 1 {
		t.Fatalf("ids = %d, %d, want 0, 1", p1.ID, p2.ID)
	}
	if len(p1.Token) != TokenLength {
		t.Fatalf("token length = %d, want %d", len(p1.Token), TokenLength)
	}
	if p1.Token == p2.Token {
		t.Fatalf("tokens must be unique")
	}
}

func TestPlayersByTokenAndDelete(t *testing.T) {
	p := NewPlayers()
	player := p.Add("alpha", 0, nil, nil)

	got, ok := p.ByToken(player.Token)
	if !ok || got.ID != player.ID {
		t.Fatalf("ByToken lookup failed")
	}

	if err := p.Delete(player.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := p.ByToken(player.Token); ok {
		t.Fatalf("token should be gone after delete")
	}
	if _, ok := p.ByID(player.ID); ok {
		t.Fatalf("id should be gone after delete")
	}
}

func TestPlayersDeleteUnknownID(t *testing.T) {
	p := NewPlayers()
	if err := p.Delete(42); err != ErrPlayerNotFound {
		t.Fatalf("Delete(unknown) = %v, want ErrPlayerNotFound", err)
	}
}

func TestPlayersAddWithSuppliedIDAndToken(t *testing.T) {
	p := NewPlayers()
	id := uint64(7)
	token := "0123456789abcdef0123456789abcdef"
	player := p.Add("restored", 0, &id, &token)
	if player.ID != 7 || player.Token != token {
		t.Fatalf("restore-path Add did not honor supplied id/token: %+v", player)
	}
}
