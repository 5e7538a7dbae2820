// Package websocket транслирует события попыток ликвидации подключенным
// клиентам (ops-дашборд) в реальном времени.
package websocket

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"liquidator/internal/models"
)

// AttemptMessage - событие завершённой попытки
type AttemptMessage struct {
	Type string         `json:"type"`
	Data models.Attempt `json:"data"`
}

// Hub управляет активными WebSocket соединениями
//
// Поток событий односторонний: сервер → клиент. Медленный клиент,
// не вычитывающий буфер, отключается - hub никогда не блокируется
// на отправке.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu  sync.RWMutex
	log *zap.Logger
}

// NewHub создает новый Hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run запускает главный цикл Hub; запускать в отдельной горутине
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("ws клиент подключился", zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			// Список копируется под коротким RLock, отправка без блокировки
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var slow []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					slow = append(slow, client)
				}
			}

			if len(slow) > 0 {
				h.mu.Lock()
				for _, client := range slow {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mu.Unlock()
				h.log.Warn("отключены медленные ws клиенты", zap.Int("removed", len(slow)))
			}
		}
	}
}

// BroadcastAttempt рассылает событие попытки всем клиентам
func (h *Hub) BroadcastAttempt(attempt models.Attempt) {
	data, err := jsoniter.Marshal(&AttemptMessage{Type: "attempt", Data: attempt})
	if err != nil {
		h.log.Error("не удалось сериализовать событие", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		// Очередь рассылки переполнена - событие дропается, история
		// попыток всё равно хранится в БД
	}
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
