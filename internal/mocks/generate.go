package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Source --dir ../domain/feed --output domain/feed --outpkg feedmock --filename source_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Assistant --dir ../domain/chat --output domain/chat --outpkg chatmock --filename assistant_mock.go
