package chat

import "sync"

// Registry 维护课程到成员会话集合的内存映射，进程重启即重建，无持久化要求。
// 所有变更都是本地同步操作，持锁期间绝不调用外部依赖。
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Session]struct{}
	joined map[*Session]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[*Session]struct{}),
		joined: make(map[*Session]map[string]struct{}),
	}
}

// Join 把会话加入课程房间，幂等；房间不存在时懒创建。
func (r *Registry) Join(s *Session, courseID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.rooms[courseID]
	if room == nil {
		room = make(map[*Session]struct{})
		r.rooms[courseID] = room
	}
	room[s] = struct{}{}
	courses := r.joined[s]
	if courses == nil {
		courses = make(map[string]struct{})
		r.joined[s] = courses
	}
	courses[courseID] = struct{}{}
}

// Leave 把会话移出课程房间，幂等；非成员时不报错。
func (r *Registry) Leave(s *Session, courseID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(s, courseID)
}

// LeaveAll 把会话从其加入的全部房间移除并返回这些课程，供会话销毁时调用。
// 返回后注册表不再持有该会话的任何引用。
func (r *Registry) LeaveAll(s *Session) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	courses := r.joined[s]
	if len(courses) == 0 {
		delete(r.joined, s)
		return nil
	}
	out := make([]string, 0, len(courses))
	for courseID := range courses {
		out = append(out, courseID)
	}
	for _, courseID := range out {
		r.removeLocked(s, courseID)
	}
	return out
}

func (r *Registry) removeLocked(s *Session, courseID string) {
	if room, ok := r.rooms[courseID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(r.rooms, courseID)
		}
	}
	if courses, ok := r.joined[s]; ok {
		delete(courses, courseID)
		if len(courses) == 0 {
			delete(r.joined, s)
		}
	}
}

// MembersOf 返回某一时刻的成员快照，供广播遍历使用。
func (r *Registry) MembersOf(courseID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[courseID]
	if len(room) == 0 {
		return nil
	}
	out := make([]*Session, 0, len(room))
	for s := range room {
		out = append(out, s)
	}
	return out
}

// IsMember 判断会话当前是否在某课程房间内。
func (r *Registry) IsMember(s *Session, courseID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.joined[s][courseID]
	return ok
}

// Online 返回课程房间当前在线会话数，供 REST 接口复用。
func (r *Registry) Online(courseID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[courseID])
}
