package ws

import (
	"errors"
	"log/slog"

	"github.com/cwrk-planet/board-service/internal/domain"
	"github.com/cwrk-planet/board-service/internal/metrics"
)

// Relay пересылает кадр другим инстансам сервиса. Publish не должен блокироваться.
type Relay interface {
	Publish(roomID domain.RoomID, payload []byte) error
}

// Hub — рассылка по участникам комнаты.
type Hub struct {
	registry *Registry
	relay    Relay
}

func NewHub(registry *Registry) *Hub {
	return &Hub{registry: registry}
}

func (h *Hub) SetRelay(r Relay) {
	h.relay = r
}

// Broadcast доставляет payload всем текущим участникам, кроме exclude.
// Ошибка одного получателя не мешает остальным и наружу не возвращается.
func (h *Hub) Broadcast(roomID domain.RoomID, payload []byte, exclude Conn) int {
	n := h.deliver(roomID, payload, exclude)

	if h.relay != nil {
		if err := h.relay.Publish(roomID, payload); err != nil {
			slog.Warn("hub.Broadcast: relay publish failed", "room", roomID, slog.Any("err", err))
		}
	}
	return n
}

// DeliverRemote — кадр от другого инстанса: автор там, здесь получают все участники.
func (h *Hub) DeliverRemote(roomID domain.RoomID, payload []byte) {
	h.deliver(roomID, payload, nil)
}

func (h *Hub) deliver(roomID domain.RoomID, payload []byte, exclude Conn) int {
	sent := 0
	for _, c := range h.registry.MembersOf(roomID) {
		if exclude != nil && c == exclude {
			continue
		}
		if err := c.Send(payload); err != nil {
			metrics.Deliveries.WithLabelValues("failed").Inc()
			if errors.Is(err, ErrQueueFull) {
				h.evict(c, roomID)
				continue
			}
			// закрытое соединение read loop снимет с регистрации сам
			slog.Debug("hub: send failed", "room", roomID, "conn", c.ID(), slog.Any("err", err))
			continue
		}
		metrics.Deliveries.WithLabelValues("sent").Inc()
		sent++
	}
	return sent
}

// evict отключает клиента с переполненной очередью; после переподключения он заново загрузит комнату.
func (h *Hub) evict(c Conn, roomID domain.RoomID) {
	h.registry.Unregister(c)
	_ = c.Close()
	slog.Info("hub: slow consumer disconnected", "room", roomID, "conn", c.ID(), "user", c.UserID())
}
