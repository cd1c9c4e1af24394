package service

import "errors"

// 业务层通用错误，handler 可据此映射到合适的 HTTP 状态码。
var ErrCourseNotFound = errors.New("course not found")
